package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vango-go/live-gateway/pkg/gateway/config"
	"github.com/vango-go/live-gateway/pkg/gateway/live/sessions"
	"github.com/vango-go/live-gateway/pkg/gateway/personas"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type ReadyHandler struct {
	Config   config.Config
	Personas *personas.Registry
	Sessions *sessions.Registry
	Draining func() bool
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK           bool     `json:"ok"`
		DemoType     string   `json:"demo_type"`
		Model        string   `json:"model"`
		Voice        string   `json:"voice"`
		TTSEnabled   bool     `json:"tts_enabled"`
		LiveSessions int      `json:"live_sessions"`
		Draining     bool     `json:"draining"`
		Issues       []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	if h.Personas != nil {
		if _, err := h.Personas.Lookup(h.Config.DemoType); err != nil {
			issues = append(issues, "demo_type does not match a configured agent")
		}
	}
	if h.Config.Model == "" {
		issues = append(issues, "model must be configured")
	}
	if h.Config.Voice == "" {
		issues = append(issues, "voice must be configured")
	}
	if h.Config.TargetSampleRate <= 0 || h.Config.BytesPerSample <= 0 {
		issues = append(issues, "audio format must be > 0")
	}
	if h.Config.FrameDuration <= 0 || h.Config.FlushTimeout <= 0 {
		issues = append(issues, "buffer timings must be > 0")
	}
	if h.Config.FlushTimeout >= h.Config.FrameDuration {
		issues = append(issues, "flush timeout must be < frame duration")
	}
	if h.Config.WSWriteTimeout <= 0 || h.Config.ReadHeaderTimeout <= 0 {
		issues = append(issues, "timeouts must be > 0")
	}

	draining := h.Draining != nil && h.Draining()
	ok := len(issues) == 0 && !draining
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:           ok,
		DemoType:     h.Config.DemoType,
		Model:        h.Config.Model,
		Voice:        h.Config.Voice,
		TTSEnabled:   h.Config.UseTTS,
		LiveSessions: h.Sessions.Count(),
		Draining:     draining,
		Issues:       issues,
	})
}
