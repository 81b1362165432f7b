// Package config loads the client configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults.
const (
	DefaultModel        = "gemini-2.0-flash-live-001"
	DefaultVoice        = "Puck"
	DefaultHistoryLimit = 2
)

// Config holds everything the client reads from the environment. Exactly one
// transport is active per process: the relay when RelayURL is set, the Gemini
// Live API otherwise.
type Config struct {
	Model        string
	Voice        string
	SystemPrompt string
	HistoryLimit int

	RelayURL   string
	RelayToken string
	APIKey     string

	ConnectTimeout time.Duration
	LogLevel       slog.Level
}

// LoadFromEnv reads VOICELINK_* variables (and GEMINI_API_KEY) and validates
// the result.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Model:          envOr("VOICELINK_MODEL", DefaultModel),
		Voice:          envOr("VOICELINK_VOICE", DefaultVoice),
		SystemPrompt:   strings.TrimSpace(os.Getenv("VOICELINK_SYSTEM_PROMPT")),
		HistoryLimit:   envIntOr("VOICELINK_HISTORY_LIMIT", DefaultHistoryLimit),
		RelayURL:       strings.TrimSpace(os.Getenv("VOICELINK_RELAY_URL")),
		RelayToken:     strings.TrimSpace(os.Getenv("VOICELINK_RELAY_TOKEN")),
		APIKey:         strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		ConnectTimeout: envDurationOr("VOICELINK_CONNECT_TIMEOUT", 15*time.Second),
	}

	level, err := parseLogLevel(envOr("VOICELINK_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// UseRelay reports whether the relay transport is selected.
func (c Config) UseRelay() bool {
	return c.RelayURL != ""
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("VOICELINK_MODEL must not be empty")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("VOICELINK_HISTORY_LIMIT must be > 0, got %d", c.HistoryLimit)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("VOICELINK_CONNECT_TIMEOUT must be > 0, got %s", c.ConnectTimeout)
	}
	if c.RelayURL != "" {
		if !strings.HasPrefix(c.RelayURL, "ws://") && !strings.HasPrefix(c.RelayURL, "wss://") {
			return fmt.Errorf("VOICELINK_RELAY_URL must be a ws:// or wss:// URL, got %q", c.RelayURL)
		}
		return nil
	}
	if c.APIKey == "" {
		return fmt.Errorf("either VOICELINK_RELAY_URL or GEMINI_API_KEY must be set")
	}
	return nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("VOICELINK_LOG_LEVEL must be debug, info, warn, or error, got %q", raw)
	}
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
