package config

import (
	"strings"
	"testing"
	"time"
)

var gatewayEnvKeys = []string{
	"PORT",
	"DEMO_TYPE",
	"MODEL",
	"VOICE",
	"MODEL_LANGUAGE",
	"PROMPT_LANGUAGE",
	"FIRST_NAME",
	"LAST_NAME",
	"USE_TTS",
	"TTS_LOCATION",
	"GOOGLE_GENAI_USE_VERTEXAI",
	"PROJECT_ID",
	"VERTEX_LOCATION",
	"WEATHER_FUNCTION_URL",
	"CUSTOM_SEARCH_CLOUD_RUN_URL",
	"WEB_SUMMARIZER_CLOUD_RUN_URL",
	"CRM_UPDATE_URL",
	"LIVE_GW_TARGET_SAMPLE_RATE",
	"LIVE_GW_BYTES_PER_SAMPLE",
	"LIVE_GW_FRAME_DURATION",
	"LIVE_GW_FLUSH_TIMEOUT",
	"LIVE_GW_WS_WRITE_TIMEOUT",
	"LIVE_GW_WS_PING_INTERVAL",
	"LIVE_GW_TOOL_TIMEOUT",
	"LIVE_GW_READ_HEADER_TIMEOUT",
	"LIVE_GW_SHUTDOWN_GRACE_PERIOD",
	"LIVE_GW_DRAIN_WARN_LEAD",
}

func clearGatewayEnv(t *testing.T) {
	t.Helper()
	for _, key := range gatewayEnvKeys {
		t.Setenv(key, "")
	}
	// Defaults run against Vertex, which needs a project.
	t.Setenv("PROJECT_ID", "demo-project")
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearGatewayEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.DemoType != "modem_setup" {
		t.Errorf("DemoType = %q", cfg.DemoType)
	}
	if cfg.Voice != "Aoede" || cfg.ModelLanguage != "en-AU" {
		t.Errorf("voice/language = %q/%q", cfg.Voice, cfg.ModelLanguage)
	}
	if cfg.UseTTS {
		t.Error("UseTTS default should be false")
	}
	if !cfg.UseVertex {
		t.Error("UseVertex default should be true")
	}
	if cfg.TargetSampleRate != 24000 || cfg.BytesPerSample != 2 {
		t.Errorf("audio defaults = %d/%d", cfg.TargetSampleRate, cfg.BytesPerSample)
	}
	if cfg.FrameDuration != 300*time.Millisecond || cfg.FlushTimeout != 250*time.Millisecond {
		t.Errorf("framing defaults = %v/%v", cfg.FrameDuration, cfg.FlushTimeout)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DEMO_TYPE", "retail")
	t.Setenv("USE_TTS", "true")
	t.Setenv("GOOGLE_GENAI_USE_VERTEXAI", "false")
	t.Setenv("LIVE_GW_FRAME_DURATION", "400ms")
	t.Setenv("LIVE_GW_FLUSH_TIMEOUT", "200ms")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.DemoType != "retail" {
		t.Errorf("DemoType = %q", cfg.DemoType)
	}
	if !cfg.UseTTS || cfg.UseVertex {
		t.Errorf("UseTTS=%v UseVertex=%v", cfg.UseTTS, cfg.UseVertex)
	}
	if cfg.FrameDuration != 400*time.Millisecond || cfg.FlushTimeout != 200*time.Millisecond {
		t.Errorf("framing = %v/%v", cfg.FrameDuration, cfg.FlushTimeout)
	}
}

func TestLoadFromEnvFullAddrPassesThrough(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("PORT", "0.0.0.0:8443")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != "0.0.0.0:8443" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
}

func TestLoadFromEnvRejectsFlushAtOrAboveFrame(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("LIVE_GW_FRAME_DURATION", "200ms")
	t.Setenv("LIVE_GW_FLUSH_TIMEOUT", "200ms")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error when flush timeout is not below frame duration")
	}
}

func TestLoadFromEnvVertexNeedsProject(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("PROJECT_ID", "")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected error without PROJECT_ID on Vertex")
	}
	if !strings.Contains(err.Error(), "PROJECT_ID") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadFromEnvTTSOnlyVoices(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("VOICE", "Achernar")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for a TTS-only voice without USE_TTS")
	}

	t.Setenv("USE_TTS", "true")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for a TTS-only voice outside en-US")
	}

	t.Setenv("MODEL_LANGUAGE", "en-US")
	if _, err := LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
}

func TestLoadFromEnvBadKnobFallsBackToDefault(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("LIVE_GW_TARGET_SAMPLE_RATE", "not-a-number")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.TargetSampleRate != 24000 {
		t.Errorf("TargetSampleRate = %d, want default 24000", cfg.TargetSampleRate)
	}
}
