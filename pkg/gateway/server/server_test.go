package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vango-go/live-gateway/pkg/gateway/config"
	"github.com/vango-go/live-gateway/pkg/gateway/live/sessions"
	"github.com/vango-go/live-gateway/pkg/gateway/personas"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := config.Config{
		Addr:              ":0",
		DemoType:          "modem_setup",
		Model:             "gemini-live-2.5-flash-preview-native-audio",
		Voice:             "Aoede",
		ModelLanguage:     "en-AU",
		TargetSampleRate:  24000,
		BytesPerSample:    2,
		FrameDuration:     300 * time.Millisecond,
		FlushTimeout:      250 * time.Millisecond,
		WSWriteTimeout:    5 * time.Second,
		WSPingInterval:    20 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		mux:    http.NewServeMux(),
		personas: personas.NewRegistry(personas.Deps{
			Profile: personas.Profile{FirstName: "Rod", LastName: "Williams"},
		}),
		sessions: sessions.NewRegistry(),
	}
	s.routes()
	return s
}

func TestServer_UnknownRoute_ReturnsJSON404(t *testing.T) {
	s := testServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%q", ct)
	}
	if !strings.Contains(rr.Body.String(), `"not found"`) {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}

func TestServer_HealthRoutes_Reachable(t *testing.T) {
	s := testServer(t)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/healthz status=%d body=%q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/readyz status=%d body=%q", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"demo_type":"modem_setup"`) {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}

func TestServer_CallbackRoute_Reachable(t *testing.T) {
	s := testServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(`{"requestId":"s_missing"}`))
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("/callback status=%d body=%q", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Invalid session_id") {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}

func TestServer_WSRoute_RefusedWhileDraining(t *testing.T) {
	s := testServer(t)
	s.SetDraining(true)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("/ws status=%d body=%q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("/readyz while draining status=%d", rr.Code)
	}
}

func TestServer_DrainHelpers(t *testing.T) {
	s := testServer(t)

	if s.Draining() {
		t.Fatal("new server must not be draining")
	}
	if n := s.LiveSessionCount(); n != 0 {
		t.Fatalf("live sessions = %d, want 0", n)
	}
	if n := s.WarnLiveSessions(); n != 0 {
		t.Fatalf("warned = %d, want 0", n)
	}
	if n := s.CancelLiveSessions(); n != 0 {
		t.Fatalf("canceled = %d, want 0", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if !s.WaitLiveSessions(ctx) {
		t.Fatal("empty registry must drain immediately")
	}
}
