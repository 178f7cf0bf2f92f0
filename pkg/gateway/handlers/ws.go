package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/live-gateway/pkg/gateway/agent"
	"github.com/vango-go/live-gateway/pkg/gateway/config"
	"github.com/vango-go/live-gateway/pkg/gateway/live/protocol"
	"github.com/vango-go/live-gateway/pkg/gateway/live/session"
	"github.com/vango-go/live-gateway/pkg/gateway/live/sessions"
	"github.com/vango-go/live-gateway/pkg/gateway/mw"
	"github.com/vango-go/live-gateway/pkg/gateway/personas"
	"github.com/vango-go/live-gateway/pkg/gateway/tools"
	"github.com/vango-go/live-gateway/pkg/gateway/tts"
)

// RunnerFactory builds the agent backend for one session. The returned
// runner is not yet connected; session.New starts it.
type RunnerFactory func(sessionID string, p personas.Persona, state tools.State) (agent.Runner, error)

// WSHandler upgrades /ws connections and runs a live session per socket.
type WSHandler struct {
	Config    config.Config
	Logger    *slog.Logger
	Personas  *personas.Registry
	Sessions  *sessions.Registry
	NewRunner RunnerFactory
	Synth     tts.Synthesizer
	Draining  func() bool
}

func (h WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Draining != nil && h.Draining() {
		http.Error(w, "server is draining", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := "s_" + mw.RandHex(8)
	logger = logger.With("session_id", sessionID)

	persona, err := h.Personas.Lookup(h.Config.DemoType)
	if err != nil {
		logger.Error("agent configuration failed", "demo_type", h.Config.DemoType, "error", err)
		h.sendEntryError(conn, protocol.ErrorData{
			Message: "Server configuration error: Agent not found.",
		})
		return
	}

	state := session.NewContextMap(persona.ContextDefaults)
	state.Set("session_id", sessionID)

	runner, err := h.NewRunner(sessionID, persona, state)
	if err != nil {
		logger.Error("agent runner construction failed", "error", err)
		h.sendEntryError(conn, protocol.ErrorData{
			Message:   "An unexpected error occurred on the server.",
			Action:    "Please try reconnecting.",
			ErrorType: protocol.ErrTypeGeneralServer,
		})
		return
	}

	sess, err := session.New(context.Background(), session.Dependencies{
		Conn:      conn,
		Logger:    h.Logger,
		Runner:    runner,
		Synth:     h.Synth,
		SessionID: sessionID,
		AppName:   persona.AppName,
		Context:   state,
		Config: session.Config{
			TargetSampleRate: h.Config.TargetSampleRate,
			BytesPerSample:   h.Config.BytesPerSample,
			FrameDuration:    h.Config.FrameDuration,
			FlushTimeout:     h.Config.FlushTimeout,
			WriteTimeout:     h.Config.WSWriteTimeout,
			PingInterval:     h.Config.WSPingInterval,
			UseTTS:           h.Config.UseTTS,
		},
	})
	if err != nil {
		logger.Error("session setup failed", "error", err)
		h.sendEntryError(conn, protocol.ErrorData{
			Message:   "An unexpected error occurred on the server.",
			Action:    "Please try reconnecting.",
			ErrorType: protocol.ErrTypeGeneralServer,
		})
		return
	}
	// Releases the upstream agent connection even when the handler bails out
	// before Run.
	defer sess.Close()

	remove := h.Sessions.Put(sess)
	defer remove()

	if err := sess.Send(protocol.ServerTypeConfig, protocol.ConfigData{
		Model:          h.Config.Model,
		Voice:          h.Config.Voice,
		ModelLanguage:  h.Config.ModelLanguage,
		PromptLanguage: h.Config.PromptLanguage,
		UseTTS:         h.Config.UseTTS,
	}); err != nil {
		logger.Warn("send config failed", "error", err)
		return
	}
	if err := sess.Send(protocol.ServerTypeReady, true); err != nil {
		logger.Warn("send ready failed", "error", err)
		return
	}

	logger.Info("new live session", "app_name", persona.AppName)
	sess.Run()
}

// sendEntryError reports a failure that happened before the session relay
// started; the socket is closed right after.
func (h WSHandler) sendEntryError(conn *websocket.Conn, data protocol.ErrorData) {
	payload, err := protocol.Encode(protocol.ServerTypeError, data)
	if err != nil {
		return
	}
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.WriteMessage(websocket.TextMessage, payload)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ""), deadline)
}
