// Package agent defines the boundary to the upstream agent runtime: the
// inbound sink live media and turns are written to, and the outbound stream
// of events (text, tool calls, inline media, interruptions) one relay
// consumes. The runtime itself is a collaborator behind the Runner
// interface; the production implementation speaks the Gemini Live API.
package agent

import (
	"context"
	"errors"
)

// ErrBackendClosed marks a terminal runner error caused by the upstream
// model backend dropping the connection mid-session. The outbound relay
// treats it as recoverable: the client is told to retry, nothing crashes.
var ErrBackendClosed = errors.New("agent backend connection closed")

// Event is one item of the agent's outbound stream. Concrete types below;
// consumers switch on the type, in stream order.
type Event interface {
	isEvent()
}

// TextEvent carries a text chunk. Partial chunks are incremental revisions
// of in-flight output and are suppressed by the relay; only complete chunks
// are delivered or synthesized. The Partial flag is owned by the runtime's
// streaming semantics and is opaque here.
type TextEvent struct {
	Text    string
	Partial bool
}

// ToolCallEvent reports that the agent invoked a tool.
type ToolCallEvent struct {
	Name string
	Args map[string]any
}

// ToolResultEvent carries a tool's response payload.
type ToolResultEvent struct {
	Name     string
	Response map[string]any
}

// InlineDataEvent carries raw inline media from the agent: PCM audio when
// the model speaks natively, or an image.
type InlineDataEvent struct {
	MIMEType string
	Data     []byte
}

// InterruptedEvent signals the current turn's output is superseded by new
// user input and must not be delivered further.
type InterruptedEvent struct{}

func (TextEvent) isEvent()       {}
func (ToolCallEvent) isEvent()   {}
func (ToolResultEvent) isEvent() {}
func (InlineDataEvent) isEvent() {}
func (InterruptedEvent) isEvent() {}

// InboundSink accepts client-originated input for the live agent.
type InboundSink interface {
	// SendMedia forwards a raw realtime media chunk (PCM audio, JPEG frame).
	SendMedia(data []byte, mimeType string) error
	// SendText forwards a complete user-role conversational turn. An empty
	// string is a valid turn.
	SendText(text string) error
	// SendModelTurn injects a synthesized model-role turn, used by the
	// out-of-band callback to resume a paused flow.
	SendModelTurn(text string) error
}

// Runner is one live agent run bound to one session.
//
// Start must fully succeed before the session is considered live; a partial
// start is a creation failure. Events returns the single-consumer outbound
// stream; the channel is closed when the run ends, after which Err reports
// the terminal cause (nil for a clean end).
type Runner interface {
	InboundSink
	Start(ctx context.Context) error
	Events() <-chan Event
	Err() error
	Close() error
}
