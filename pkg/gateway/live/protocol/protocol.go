// Package protocol defines the JSON message envelope exchanged with live
// clients: {"type": <string>, "data": <any>} in both directions.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Client -> server message types.
const (
	ClientTypeAudio = "audio"
	ClientTypeImage = "image"
	ClientTypeText  = "text"
	ClientTypeEnd   = "end"
)

// Server -> client message types.
const (
	ServerTypeConfig       = "config"
	ServerTypeReady        = "ready"
	ServerTypeAudio        = "audio"
	ServerTypeText         = "text"
	ServerTypeToolCall     = "tool_call"
	ServerTypeToolResult   = "tool_result"
	ServerTypeImage        = "image"
	ServerTypeInterrupted  = "interrupted"
	ServerTypeTurnComplete = "turn_complete"
	ServerTypeError        = "error"
)

// Error categories carried in ErrorData.ErrorType.
const (
	ErrTypeBackendConnection = "backend_connection_error"
	ErrTypeAgentProcessing   = "agent_response_processing_error"
	ErrTypeQuotaExceeded     = "quota_exceeded"
	ErrTypeGeneralServer     = "general_server_error"
	ErrTypeTaskGroup         = "task_group_error"
)

// Envelope is the raw wire shape of every message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is a decoded client -> server message. Data is nil when the
// "data" field was absent or JSON null, which callers must distinguish from
// an empty string (an empty text turn is valid).
type ClientMessage struct {
	Type string
	Data *string
}

// DecodeClientMessage parses a text frame into a ClientMessage. The payload
// for the known client types is always a JSON string; a payload of any other
// JSON shape is a decode error and the frame is dropped by the caller.
func DecodeClientMessage(raw []byte) (ClientMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ClientMessage{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return ClientMessage{}, fmt.Errorf("message missing type")
	}

	msg := ClientMessage{Type: env.Type}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return msg, nil
	}
	var data string
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return ClientMessage{}, fmt.Errorf("decode %q data: %w", env.Type, err)
	}
	msg.Data = &data
	return msg, nil
}

// Encode wraps data in the envelope and marshals it.
func Encode(messageType string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %q data: %w", messageType, err)
	}
	return json.Marshal(Envelope{Type: messageType, Data: payload})
}

// ConfigData is sent once at session start and describes the active
// model/voice/language selection and whether server-side TTS is in use.
type ConfigData struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	ModelLanguage  string `json:"model_language"`
	PromptLanguage string `json:"prompt_language,omitempty"`
	UseTTS         bool   `json:"use_tts"`
}

type ToolCallData struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type InterruptedData struct {
	Message string `json:"message"`
}

type ErrorData struct {
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}
