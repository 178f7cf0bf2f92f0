// Package server assembles the gateway: configuration, the persona registry,
// the Gemini backend client, optional Cloud TTS, and the HTTP surface the
// live clients and the approval callback talk to.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"google.golang.org/genai"

	"github.com/vango-go/live-gateway/pkg/gateway/agent"
	"github.com/vango-go/live-gateway/pkg/gateway/config"
	"github.com/vango-go/live-gateway/pkg/gateway/handlers"
	"github.com/vango-go/live-gateway/pkg/gateway/live/sessions"
	"github.com/vango-go/live-gateway/pkg/gateway/mw"
	"github.com/vango-go/live-gateway/pkg/gateway/personas"
	"github.com/vango-go/live-gateway/pkg/gateway/secrets"
	"github.com/vango-go/live-gateway/pkg/gateway/tools"
	"github.com/vango-go/live-gateway/pkg/gateway/tools/safety"
	"github.com/vango-go/live-gateway/pkg/gateway/tts"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	personas *personas.Registry
	sessions *sessions.Registry
	genai    *genai.Client
	synth    tts.Synthesizer

	draining atomic.Bool
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	genaiClient, err := newGenAIClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var synth tts.Synthesizer
	if cfg.UseTTS {
		gs, err := tts.NewGoogleSynthesizer(ctx, tts.GoogleConfig{
			Location:     cfg.TTSLocation,
			LanguageCode: cfg.ModelLanguage,
			Voice:        cfg.Voice,
			Logger:       logger,
		})
		if err != nil {
			logger.Warn("tts unavailable, falling back to text responses", "error", err)
		} else {
			synth = gs
		}
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		mux:    http.NewServeMux(),
		personas: personas.NewRegistry(personas.Deps{
			Profile: personas.Profile{
				FirstName: cfg.FirstName,
				LastName:  cfg.LastName,
			},
			Tools: tools.Deps{
				HTTPClient:    safety.RestrictedClient(httpClient),
				WeatherURL:    cfg.WeatherURL,
				SearchURL:     cfg.SearchURL,
				SummarizerURL: cfg.SummarizerURL,
				CRMURL:        cfg.CRMURL,
			},
			Language: cfg.PromptLanguage,
		}),
		sessions: sessions.NewRegistry(),
		genai:    genaiClient,
		synth:    synth,
	}

	if _, err := s.personas.Lookup(cfg.DemoType); err != nil {
		return nil, fmt.Errorf("configure agent: %w", err)
	}

	s.routes()
	return s, nil
}

func newGenAIClient(ctx context.Context, cfg config.Config, logger *slog.Logger) (*genai.Client, error) {
	if cfg.UseVertex {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  cfg.ProjectID,
			Location: cfg.Location,
		})
		if err != nil {
			return nil, fmt.Errorf("create vertex genai client: %w", err)
		}
		return client, nil
	}

	apiKey, err := secrets.NewLoader(cfg.ProjectID, logger).APIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("load api key: %w", err)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// newRunner builds one Gemini live run for a session. When server-side TTS
// is active the model is asked for text only and the synthesizer produces
// the audio.
func (s *Server) newRunner(sessionID string, p personas.Persona, state tools.State) (agent.Runner, error) {
	runner, err := agent.NewGeminiRunner(s.genai, agent.GeminiConfig{
		Model:        s.cfg.Model,
		Voice:        s.cfg.Voice,
		LanguageCode: s.cfg.ModelLanguage,
		GlobalPrompt: p.GlobalPrompt,
		SystemPrompt: p.Prompt,
		TextOnly:     s.cfg.UseTTS && s.synth != nil,
		Tools:        tools.NewRegistry(p.Tools...),
		State:        state,
		ToolTimeout:  s.cfg.ToolTimeout,
		Logger:       s.logger.With("session_id", sessionID),
	})
	if err != nil {
		return nil, err
	}
	return runner, nil
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{
		Config:   s.cfg,
		Personas: s.personas,
		Sessions: s.sessions,
		Draining: s.Draining,
	})
	s.mux.Handle("/callback", handlers.CallbackHandler{
		Logger:   s.logger,
		Sessions: s.sessions,
	})
	s.mux.Handle("/ws", handlers.WSHandler{
		Config:    s.cfg,
		Logger:    s.logger,
		Personas:  s.personas,
		Sessions:  s.sessions,
		NewRunner: s.newRunner,
		Synth:     s.synth,
		Draining:  s.Draining,
	})
	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// SetDraining flips readiness and makes /ws refuse new sessions. Existing
// sessions keep running until they end or are canceled.
func (s *Server) SetDraining(v bool) { s.draining.Store(v) }

func (s *Server) Draining() bool { return s.draining.Load() }

// WarnLiveSessions tells every connected client the server is about to stop.
func (s *Server) WarnLiveSessions() int {
	return s.sessions.WarnAll(
		"The server is shutting down shortly.",
		"Please wrap up the conversation or reconnect later.",
		"general_server_error",
	)
}

// WaitLiveSessions blocks until all sessions ended or the context expires.
func (s *Server) WaitLiveSessions(ctx context.Context) bool {
	return s.sessions.Wait(ctx)
}

func (s *Server) CancelLiveSessions() int {
	return s.sessions.CancelAll()
}

func (s *Server) LiveSessionCount() int {
	return s.sessions.Count()
}
