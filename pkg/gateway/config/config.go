package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// Persona and model selection.
	DemoType       string
	Model          string
	Voice          string
	ModelLanguage  string
	PromptLanguage string
	FirstName      string
	LastName       string

	// Audio out: native model audio by default, Cloud TTS when UseTTS is set.
	UseTTS      bool
	TTSLocation string

	// Gemini backend selection.
	UseVertex bool
	ProjectID string
	Location  string

	// Tool backends.
	WeatherURL    string
	SearchURL     string
	SummarizerURL string
	CRMURL        string

	// Outbound audio framing.
	TargetSampleRate int
	BytesPerSample   int
	FrameDuration    time.Duration
	FlushTimeout     time.Duration

	// WebSocket and tool execution tuning.
	WSWriteTimeout time.Duration
	WSPingInterval time.Duration
	ToolTimeout    time.Duration

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
	DrainWarnLead       time.Duration
}

// Voices not yet available through the Live API's native audio out; they can
// only be used with Cloud TTS, and there only in en-US.
var ttsOnlyVoices = map[string]struct{}{
	"Achernar": {},
	"Sulafat":  {},
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                listenAddr(envOr("PORT", "8080")),
		DemoType:            envOr("DEMO_TYPE", "modem_setup"),
		Model:               envOr("MODEL", "gemini-live-2.5-flash-preview-native-audio"),
		Voice:               envOr("VOICE", "Aoede"),
		ModelLanguage:       envOr("MODEL_LANGUAGE", "en-AU"),
		PromptLanguage:      envOr("PROMPT_LANGUAGE", ""),
		FirstName:           envOr("FIRST_NAME", "Rod"),
		LastName:            envOr("LAST_NAME", "Williams"),
		UseTTS:              envBoolOr("USE_TTS", false),
		TTSLocation:         envOr("TTS_LOCATION", "global"),
		UseVertex:           envBoolOr("GOOGLE_GENAI_USE_VERTEXAI", true),
		ProjectID:           envOr("PROJECT_ID", ""),
		Location:            envOr("VERTEX_LOCATION", "us-central1"),
		WeatherURL:          envOr("WEATHER_FUNCTION_URL", ""),
		SearchURL:           envOr("CUSTOM_SEARCH_CLOUD_RUN_URL", ""),
		SummarizerURL:       envOr("WEB_SUMMARIZER_CLOUD_RUN_URL", ""),
		CRMURL:              envOr("CRM_UPDATE_URL", ""),
		TargetSampleRate:    envIntOr("LIVE_GW_TARGET_SAMPLE_RATE", 24000),
		BytesPerSample:      envIntOr("LIVE_GW_BYTES_PER_SAMPLE", 2),
		FrameDuration:       envDurationOr("LIVE_GW_FRAME_DURATION", 300*time.Millisecond),
		FlushTimeout:        envDurationOr("LIVE_GW_FLUSH_TIMEOUT", 250*time.Millisecond),
		WSWriteTimeout:      envDurationOr("LIVE_GW_WS_WRITE_TIMEOUT", 5*time.Second),
		WSPingInterval:      envDurationOr("LIVE_GW_WS_PING_INTERVAL", 20*time.Second),
		ToolTimeout:         envDurationOr("LIVE_GW_TOOL_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout:   envDurationOr("LIVE_GW_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("LIVE_GW_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
		DrainWarnLead:       envDurationOr("LIVE_GW_DRAIN_WARN_LEAD", 5*time.Second),
	}

	if cfg.DemoType == "" {
		return Config{}, fmt.Errorf("DEMO_TYPE must not be empty")
	}
	if cfg.Model == "" {
		return Config{}, fmt.Errorf("MODEL must not be empty")
	}
	if cfg.Voice == "" {
		return Config{}, fmt.Errorf("VOICE must not be empty")
	}
	if cfg.ModelLanguage == "" {
		return Config{}, fmt.Errorf("MODEL_LANGUAGE must not be empty")
	}
	if cfg.UseVertex && cfg.ProjectID == "" {
		return Config{}, fmt.Errorf("PROJECT_ID must be set when GOOGLE_GENAI_USE_VERTEXAI is enabled")
	}

	if _, restricted := ttsOnlyVoices[cfg.Voice]; restricted {
		if !cfg.UseTTS {
			return Config{}, fmt.Errorf("VOICE %q is not supported by the Live API; set USE_TTS=true to use it", cfg.Voice)
		}
		if cfg.ModelLanguage != "en-US" {
			return Config{}, fmt.Errorf("VOICE %q is only supported with MODEL_LANGUAGE=en-US", cfg.Voice)
		}
	}

	if cfg.TargetSampleRate <= 0 {
		return Config{}, fmt.Errorf("LIVE_GW_TARGET_SAMPLE_RATE must be > 0")
	}
	if cfg.BytesPerSample <= 0 {
		return Config{}, fmt.Errorf("LIVE_GW_BYTES_PER_SAMPLE must be > 0")
	}
	if cfg.FrameDuration <= 0 {
		return Config{}, fmt.Errorf("LIVE_GW_FRAME_DURATION must be > 0")
	}
	if cfg.FlushTimeout <= 0 {
		return Config{}, fmt.Errorf("LIVE_GW_FLUSH_TIMEOUT must be > 0")
	}
	if cfg.FlushTimeout >= cfg.FrameDuration {
		return Config{}, fmt.Errorf("LIVE_GW_FLUSH_TIMEOUT must be < LIVE_GW_FRAME_DURATION")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("LIVE_GW_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.WSPingInterval <= 0 {
		return Config{}, fmt.Errorf("LIVE_GW_WS_PING_INTERVAL must be > 0")
	}
	if cfg.ToolTimeout <= 0 {
		return Config{}, fmt.Errorf("LIVE_GW_TOOL_TIMEOUT must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("LIVE_GW_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("LIVE_GW_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	if cfg.DrainWarnLead < 0 {
		return Config{}, fmt.Errorf("LIVE_GW_DRAIN_WARN_LEAD must be >= 0")
	}

	return cfg, nil
}

// listenAddr accepts either a bare port ("8080") or a full address (":8080",
// "0.0.0.0:8080").
func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
