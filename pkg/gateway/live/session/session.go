// Package session runs one live conversation: it relays client media to the
// agent backend, streams agent responses back over the websocket, and
// coalesces outbound audio into frames.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/live-gateway/pkg/gateway/agent"
	"github.com/vango-go/live-gateway/pkg/gateway/live/protocol"
	"github.com/vango-go/live-gateway/pkg/gateway/tts"
)

// Transport abstracts the client websocket connection.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Config struct {
	TargetSampleRate int
	BytesPerSample   int
	FrameDuration    time.Duration
	FlushTimeout     time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	UseTTS           bool
}

func (c Config) withDefaults() Config {
	if c.TargetSampleRate <= 0 {
		c.TargetSampleRate = 24000
	}
	if c.BytesPerSample <= 0 {
		c.BytesPerSample = 2
	}
	if c.FrameDuration <= 0 {
		c.FrameDuration = 300 * time.Millisecond
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 250 * time.Millisecond
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	return c
}

// maxBufferedBytes is the frame size that triggers a size-based flush:
// one FrameDuration worth of PCM at the configured rate and sample width.
func (c Config) maxBufferedBytes() int {
	return int(float64(c.TargetSampleRate*c.BytesPerSample) * c.FrameDuration.Seconds())
}

type Dependencies struct {
	Conn      Transport
	Logger    *slog.Logger
	Runner    agent.Runner
	Synth     tts.Synthesizer
	SessionID string
	AppName   string
	Context   *ContextMap
	Config    Config
	Now       func() time.Time
}

type Session struct {
	id      string
	appName string
	conn    Transport
	logger  *slog.Logger
	runner  agent.Runner
	synth   tts.Synthesizer
	context *ContextMap
	cfg     Config
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	buffer *frameBuffer

	writeMu sync.Mutex
	closed  bool

	closeOnce sync.Once
}

// New wires a session and connects the agent backend synchronously, so a
// failed backend connect surfaces before the client is told the session is
// ready.
func New(ctx context.Context, deps Dependencies) (*Session, error) {
	if deps.Conn == nil {
		return nil, errors.New("transport is required")
	}
	if deps.Runner == nil {
		return nil, errors.New("agent runner is required")
	}
	if deps.SessionID == "" {
		return nil, errors.New("session id is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Context == nil {
		deps.Context = NewContextMap(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	cfg := deps.Config.withDefaults()

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:      deps.SessionID,
		appName: deps.AppName,
		conn:    deps.Conn,
		logger:  deps.Logger.With("session_id", deps.SessionID),
		runner:  deps.Runner,
		synth:   deps.Synth,
		context: deps.Context,
		cfg:     cfg,
		now:     deps.Now,
		ctx:     sctx,
		cancel:  cancel,
	}
	s.buffer = newFrameBuffer(cfg.maxBufferedBytes(), cfg.FlushTimeout, s.now, s.transmitAudio, s.logger)

	if err := s.runner.Start(sctx); err != nil {
		cancel()
		return nil, fmt.Errorf("start agent runner: %w", err)
	}
	return s, nil
}

func (s *Session) ID() string      { return s.id }
func (s *Session) AppName() string { return s.appName }

// Cancel stops the session; Run unwinds and cleans up.
func (s *Session) Cancel() { s.cancel() }

// Close cancels the session and releases the agent backend and the client
// socket. Entry paths that fail before Run takes over need it; calling it
// after Run has cleaned up is safe.
func (s *Session) Close() {
	s.cancel()
	if err := s.runner.Close(); err != nil {
		s.logger.Debug("close agent runner", "error", err)
	}
	s.closeTransport()
}

// SetContext updates one key in the shared conversation context.
func (s *Session) SetContext(key string, value any) { s.context.Set(key, value) }

// InjectModelTurn feeds text into the conversation as if the model had said
// it, used by the manager approval callback.
func (s *Session) InjectModelTurn(text string) error {
	return s.runner.SendModelTurn(text)
}

// Run drives the relay loops until either side ends, then reports any
// terminal failure to the client and tears the session down. It never
// returns an error; every failure is reported in-session.
func (s *Session) Run() {
	defer s.teardown()

	// Unblocks a reader stuck in ReadMessage when the session is canceled.
	go func() {
		<-s.ctx.Done()
		s.closeTransport()
	}()
	go s.flushTimeoutLoop()
	go s.pingLoop()

	results := make(chan error, 2)
	go func() { results <- s.guard("client relay", s.relayClientMessages) }()
	go func() { results <- s.guard("agent relay", s.relayAgentEvents) }()

	// Flush any buffered audio and report the first relay's failure while
	// the socket is still writable, then cancel so the other relay unwinds.
	err := <-results
	s.buffer.ConsiderFlush(true)
	s.reportRunError(err)
	s.cancel()
	if closeErr := s.runner.Close(); closeErr != nil {
		s.logger.Debug("close agent runner", "error", closeErr)
	}
	if second := <-results; err == nil {
		s.reportRunError(second)
	}
}

// guard converts a relay panic into an error so one bad message cannot take
// the process down.
func (s *Session) guard(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("relay panicked", "relay", name, "panic", r)
			err = fmt.Errorf("%w: %s: %v", errRelayPanic, name, r)
		}
	}()
	return fn()
}

var errRelayPanic = errors.New("relay panic")

func (s *Session) reportRunError(err error) {
	switch {
	case err == nil:
	case isQuotaErr(err):
		s.logger.Warn("session ended on quota error", "error", err)
		_ = s.sendError(protocol.ErrorData{
			Message:   "Quota exceeded.",
			Action:    "Please wait a moment and try again.",
			ErrorType: protocol.ErrTypeQuotaExceeded,
		})
		_ = s.send(protocol.ServerTypeText, "⚠️ Quota exceeded. Please wait a moment and try again.")
	case errors.Is(err, errRelayPanic):
		s.logger.Error("session ended on relay panic", "error", err)
		_ = s.sendError(protocol.ErrorData{
			Message:   "An internal error occurred during message handling.",
			Action:    "Please try reconnecting.",
			ErrorType: protocol.ErrTypeTaskGroup,
		})
	case errors.Is(err, agent.ErrBackendClosed):
		s.logger.Warn("agent backend connection lost", "error", err)
		_ = s.sendError(protocol.ErrorData{
			Message:   "There was a temporary issue communicating with the AI assistant.",
			Action:    "Please try sending your message again.",
			ErrorType: protocol.ErrTypeBackendConnection,
		})
	default:
		s.logger.Error("session ended with error", "error", err)
		_ = s.sendError(protocol.ErrorData{
			Message:   "An internal error occurred while processing the assistant's response.",
			Action:    "Please try sending your message again or reconnect if issues persist.",
			ErrorType: protocol.ErrTypeAgentProcessing,
		})
	}
}

func isQuotaErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Quota exceeded") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// Send writes one typed envelope to the client, used by the handler for the
// config and ready messages before the relay loops take over.
func (s *Session) Send(messageType string, data any) error {
	return s.send(messageType, data)
}

func (s *Session) send(messageType string, data any) error {
	payload, err := protocol.Encode(messageType, data)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", messageType, err)
	}
	return s.write(payload)
}

func (s *Session) sendError(data protocol.ErrorData) error {
	return s.send(protocol.ServerTypeError, data)
}

// NotifyError pushes an error envelope to the client, used by the server
// for out-of-band conditions such as drain warnings.
func (s *Session) NotifyError(message, action, errorType string) error {
	return s.sendError(protocol.ErrorData{Message: message, Action: action, ErrorType: errorType})
}

func (s *Session) write(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return errors.New("session transport closed")
	}
	deadline := s.now().Add(s.cfg.WriteTimeout)
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			deadline := s.now().Add(s.cfg.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				s.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

func (s *Session) closeTransport() {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.closed = true
		s.writeMu.Unlock()
		deadline := s.now().Add(s.cfg.WriteTimeout)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = s.conn.Close()
	})
}

func (s *Session) teardown() {
	s.cancel()
	s.closeTransport()
	s.logger.Info("session terminated")
}
