package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecodeClientMessageAudio(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"audio","data":"AAEC"}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage: %v", err)
	}
	if msg.Type != ClientTypeAudio {
		t.Fatalf("type = %q, want %q", msg.Type, ClientTypeAudio)
	}
	if msg.Data == nil || *msg.Data != "AAEC" {
		t.Fatalf("data = %v, want AAEC", msg.Data)
	}
}

func TestDecodeClientMessageEmptyTextIsPresent(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"text","data":""}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage: %v", err)
	}
	if msg.Data == nil {
		t.Fatal("empty string data decoded as absent")
	}
	if *msg.Data != "" {
		t.Fatalf("data = %q, want empty string", *msg.Data)
	}
}

func TestDecodeClientMessageAbsentData(t *testing.T) {
	for _, raw := range []string{`{"type":"end"}`, `{"type":"audio","data":null}`} {
		msg, err := DecodeClientMessage([]byte(raw))
		if err != nil {
			t.Fatalf("DecodeClientMessage(%s): %v", raw, err)
		}
		if msg.Data != nil {
			t.Fatalf("DecodeClientMessage(%s) data = %q, want nil", raw, *msg.Data)
		}
	}
}

func TestDecodeClientMessageRejectsMissingType(t *testing.T) {
	if _, err := DecodeClientMessage([]byte(`{"data":"x"}`)); err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestDecodeClientMessageRejectsBadJSON(t *testing.T) {
	if _, err := DecodeClientMessage([]byte(`{"type":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	if _, err := DecodeClientMessage([]byte(`{"type":"audio","data":{"nested":1}}`)); err == nil {
		t.Fatal("expected error for non-string data payload")
	}
}

func TestEncodeConfig(t *testing.T) {
	raw, err := Encode(ServerTypeConfig, ConfigData{
		Model:          "gemini-2.0-flash-live-001",
		Voice:          "Aoede",
		ModelLanguage:  "en-US",
		PromptLanguage: "en-AU",
		UseTTS:         true,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var env struct {
		Type string     `json:"type"`
		Data ConfigData `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != ServerTypeConfig {
		t.Fatalf("type = %q", env.Type)
	}
	if env.Data.Voice != "Aoede" || !env.Data.UseTTS {
		t.Fatalf("round-tripped config = %+v", env.Data)
	}
}

func TestEncodeErrorOmitsEmptyFields(t *testing.T) {
	raw, err := Encode(ServerTypeError, ErrorData{Message: "boom"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := env.Data["action"]; ok {
		t.Fatal("empty action should be omitted")
	}
	if _, ok := env.Data["error_type"]; ok {
		t.Fatal("empty error_type should be omitted")
	}
	if env.Data["message"] != "boom" {
		t.Fatalf("message = %v", env.Data["message"])
	}
}

func TestEncodeReadySignal(t *testing.T) {
	raw, err := Encode(ServerTypeReady, true)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(raw) != `{"type":"ready","data":true}` {
		t.Fatalf("ready payload = %s", raw)
	}
}
