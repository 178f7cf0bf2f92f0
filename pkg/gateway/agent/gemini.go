package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/vango-go/live-gateway/pkg/gateway/tools"
)

// GeminiConfig configures one live run against the Gemini Live API.
type GeminiConfig struct {
	Model        string
	Voice        string
	LanguageCode string
	GlobalPrompt string
	SystemPrompt string

	// TextOnly requests text response modality instead of native audio,
	// used when a separate TTS engine re-synthesizes the agent's output.
	TextOnly bool

	Tools *tools.Registry
	State tools.State

	ToolTimeout time.Duration
	EventBuffer int
	Logger      *slog.Logger
}

// GeminiRunner speaks the Gemini Live API: it forwards realtime media and
// turns upstream, pumps the server's interleaved messages into an Event
// channel, and executes registered tools on live tool calls.
type GeminiRunner struct {
	client *genai.Client
	cfg    GeminiConfig
	logger *slog.Logger

	session *genai.Session
	events  chan Event

	turnText strings.Builder

	mu        sync.Mutex
	runErr    error
	closeOnce sync.Once
}

func NewGeminiRunner(client *genai.Client, cfg GeminiConfig) (*GeminiRunner, error) {
	if client == nil {
		return nil, fmt.Errorf("genai client is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 15 * time.Second
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	return &GeminiRunner{
		client: client,
		cfg:    cfg,
		logger: cfg.Logger,
		events: make(chan Event, cfg.EventBuffer),
	}, nil
}

func (r *GeminiRunner) liveConnectConfig() *genai.LiveConnectConfig {
	cfg := &genai.LiveConnectConfig{
		RealtimeInputConfig: &genai.RealtimeInputConfig{
			AutomaticActivityDetection: &genai.AutomaticActivityDetection{
				StartOfSpeechSensitivity: genai.StartSensitivityLow,
				EndOfSpeechSensitivity:   genai.EndSensitivityLow,
				PrefixPaddingMs:          genai.Ptr[int32](1000),
				SilenceDurationMs:        genai.Ptr[int32](100),
			},
		},
	}

	prompt := strings.TrimSpace(strings.TrimSpace(r.cfg.GlobalPrompt) + "\n\n" + strings.TrimSpace(r.cfg.SystemPrompt))
	if prompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt}}}
	}

	if decls := r.cfg.Tools.Declarations(); len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	if r.cfg.TextOnly {
		cfg.ResponseModalities = []genai.Modality{genai.ModalityText}
		return cfg
	}

	cfg.ResponseModalities = []genai.Modality{genai.ModalityAudio}
	cfg.SpeechConfig = &genai.SpeechConfig{
		VoiceConfig: &genai.VoiceConfig{
			PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: r.cfg.Voice},
		},
		LanguageCode: r.cfg.LanguageCode,
	}
	cfg.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	cfg.EnableAffectiveDialog = genai.Ptr(true)
	cfg.Proactivity = &genai.ProactivityConfig{ProactiveAudio: genai.Ptr(true)}
	return cfg
}

// Start opens the live connection synchronously. The receive pump only runs
// after a fully successful connect, so a failed start leaves nothing behind.
func (r *GeminiRunner) Start(ctx context.Context) error {
	if r.session != nil {
		return fmt.Errorf("runner already started")
	}
	session, err := r.client.Live.Connect(ctx, r.cfg.Model, r.liveConnectConfig())
	if err != nil {
		return fmt.Errorf("connect live agent: %w", err)
	}
	r.session = session
	go r.receiveLoop(ctx)
	return nil
}

func (r *GeminiRunner) receiveLoop(ctx context.Context) {
	defer close(r.events)
	for {
		msg, err := r.session.Receive()
		if err != nil {
			r.setErr(classifyReceiveErr(err))
			return
		}
		if msg == nil {
			continue
		}
		if msg.ToolCall != nil {
			r.handleToolCall(ctx, msg.ToolCall)
		}
		if msg.ServerContent != nil {
			for _, ev := range r.serverContentEvents(msg.ServerContent) {
				if !r.emit(ctx, ev) {
					return
				}
			}
		}
	}
}

// serverContentEvents translates one server content message into events.
// Streamed text is surfaced as partial chunks while it accumulates; the
// accumulated turn is emitted once as a complete chunk when the model
// finishes, so downstream consumers never see the same content twice.
func (r *GeminiRunner) serverContentEvents(sc *genai.LiveServerContent) []Event {
	var out []Event

	if sc.Interrupted {
		r.turnText.Reset()
		out = append(out, InterruptedEvent{})
		return out
	}

	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part == nil {
				continue
			}
			switch {
			case part.Text != "":
				r.turnText.WriteString(part.Text)
				out = append(out, TextEvent{Text: part.Text, Partial: true})
			case part.InlineData != nil && len(part.InlineData.Data) > 0:
				out = append(out, InlineDataEvent{
					MIMEType: part.InlineData.MIMEType,
					Data:     part.InlineData.Data,
				})
			}
		}
	}

	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		r.turnText.WriteString(sc.OutputTranscription.Text)
		out = append(out, TextEvent{Text: sc.OutputTranscription.Text, Partial: true})
	}

	if sc.TurnComplete {
		if text := r.turnText.String(); strings.TrimSpace(text) != "" {
			out = append(out, TextEvent{Text: text, Partial: false})
		}
		r.turnText.Reset()
	}

	return out
}

func (r *GeminiRunner) handleToolCall(ctx context.Context, call *genai.LiveServerToolCall) {
	responses := make([]*genai.FunctionResponse, 0, len(call.FunctionCalls))
	for _, fc := range call.FunctionCalls {
		if fc == nil {
			continue
		}
		if !r.emit(ctx, ToolCallEvent{Name: fc.Name, Args: fc.Args}) {
			return
		}
		response := r.runTool(ctx, fc.Name, fc.Args)
		if !r.emit(ctx, ToolResultEvent{Name: fc.Name, Response: response}) {
			return
		}
		responses = append(responses, &genai.FunctionResponse{
			ID:       fc.ID,
			Name:     fc.Name,
			Response: response,
		})
	}
	if len(responses) == 0 {
		return
	}
	if err := r.session.SendToolResponse(genai.LiveToolResponseInput{FunctionResponses: responses}); err != nil {
		r.logger.Warn("send tool response failed", "error", err)
	}
}

func (r *GeminiRunner) runTool(ctx context.Context, name string, args map[string]any) map[string]any {
	tool, ok := r.cfg.Tools.Lookup(name)
	if !ok {
		r.logger.Warn("model called unknown tool", "tool", name)
		return map[string]any{"error": fmt.Sprintf("unknown tool %q", name)}
	}
	toolCtx, cancel := context.WithTimeout(ctx, r.cfg.ToolTimeout)
	defer cancel()
	r.logger.Info("executing tool", "tool", name)
	return tool.Run(toolCtx, args, r.cfg.State)
}

func (r *GeminiRunner) emit(ctx context.Context, ev Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-ctx.Done():
		r.setErr(nil)
		return false
	}
}

func (r *GeminiRunner) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runErr == nil {
		r.runErr = err
	}
}

func (r *GeminiRunner) Events() <-chan Event { return r.events }

func (r *GeminiRunner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runErr
}

func (r *GeminiRunner) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.session != nil {
			err = r.session.Close()
		}
	})
	return err
}

func (r *GeminiRunner) SendMedia(data []byte, mimeType string) error {
	if r.session == nil {
		return fmt.Errorf("runner not started")
	}
	return r.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: data, MIMEType: mimeType},
	})
}

func (r *GeminiRunner) SendText(text string) error {
	return r.sendTurn("user", text)
}

func (r *GeminiRunner) SendModelTurn(text string) error {
	return r.sendTurn("model", text)
}

func (r *GeminiRunner) sendTurn(role, text string) error {
	if r.session == nil {
		return fmt.Errorf("runner not started")
	}
	return r.session.SendClientContent(genai.LiveClientContentInput{
		Turns: []*genai.Content{
			{Role: role, Parts: []*genai.Part{{Text: text}}},
		},
		TurnComplete: genai.Ptr(true),
	})
}

// classifyReceiveErr maps a Receive error to the runner's terminal error. A
// clean stream end is not an error; transport-level drops become
// ErrBackendClosed so the relay reports them as retryable.
func classifyReceiveErr(err error) error {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %v", ErrBackendClosed, err)
	}
	msg := err.Error()
	for _, marker := range []string{"connection reset", "connection closed", "closed network connection", "DEADLINE_EXCEEDED", "websocket: close"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrBackendClosed, err)
		}
	}
	return err
}
