package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != DefaultModel {
		t.Fatalf("model=%q", cfg.Model)
	}
	if cfg.Voice != DefaultVoice {
		t.Fatalf("voice=%q", cfg.Voice)
	}
	if cfg.HistoryLimit != DefaultHistoryLimit {
		t.Fatalf("history limit=%d", cfg.HistoryLimit)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("log level=%v", cfg.LogLevel)
	}
	if cfg.UseRelay() {
		t.Fatalf("relay selected without relay url")
	}
}

func TestLoadFromEnv_RelaySelectsTransport(t *testing.T) {
	t.Setenv("VOICELINK_RELAY_URL", "wss://relay.example.com/live")
	t.Setenv("VOICELINK_RELAY_TOKEN", "tok")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.UseRelay() {
		t.Fatalf("relay not selected")
	}
	if cfg.RelayToken != "tok" {
		t.Fatalf("token=%q", cfg.RelayToken)
	}
}

func TestLoadFromEnv_NoCredentialsFails(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("VOICELINK_RELAY_URL", "")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error without relay url or api key")
	}
}

func TestLoadFromEnv_BadRelayScheme(t *testing.T) {
	t.Setenv("VOICELINK_RELAY_URL", "https://relay.example.com/live")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error for non-websocket relay url")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("VOICELINK_MODEL", "gemini-live-custom")
	t.Setenv("VOICELINK_VOICE", "Aster")
	t.Setenv("VOICELINK_HISTORY_LIMIT", "8")
	t.Setenv("VOICELINK_CONNECT_TIMEOUT", "5s")
	t.Setenv("VOICELINK_LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != "gemini-live-custom" || cfg.Voice != "Aster" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.HistoryLimit != 8 {
		t.Fatalf("history limit=%d", cfg.HistoryLimit)
	}
	if cfg.ConnectTimeout != 5*time.Second {
		t.Fatalf("timeout=%s", cfg.ConnectTimeout)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("log level=%v", cfg.LogLevel)
	}
}

func TestLoadFromEnv_BadLogLevel(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("VOICELINK_LOG_LEVEL", "loud")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestValidate_HistoryLimit(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("VOICELINK_HISTORY_LIMIT", "-1")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error for negative history limit")
	}
}
