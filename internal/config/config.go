package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the ATLAS relay service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	// Conversation store.
	HistoryLimit   int
	ContextTimeout time.Duration
	SweepInterval  time.Duration

	// Session heartbeat.
	HeartbeatInterval time.Duration

	// LLM adapter.
	AdapterMode     string
	AnthropicAPIKey string
	AnthropicModel  string
	MaxTokens       int

	// Skills.
	DefaultLocation string
	NewsCacheTTL    time.Duration
	SkillTimeout    time.Duration

	// Voice.
	TTSVoice     string
	TTSRate      string
	TTSPitch     string
	TTSTempDir   string
	STTProvider  string
	OpenAIAPIKey string
	DeepgramKey  string

	// Optional transcript archive.
	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("ATLAS_BIND_ADDR", ":3000"),
		MetricsNamespace:  envOrDefault("ATLAS_METRICS_NAMESPACE", "atlas"),
		AllowAnyOrigin:    true,
		HistoryLimit:      20,
		ContextTimeout:    30 * time.Minute,
		SweepInterval:     5 * time.Minute,
		HeartbeatInterval: 30 * time.Second,
		AdapterMode:       envOrDefault("ATLAS_ADAPTER_MODE", "auto"),
		AnthropicAPIKey:   stringsTrimSpace("ANTHROPIC_API_KEY"),
		AnthropicModel:    envOrDefault("ATLAS_MODEL", "claude-sonnet-4-20250514"),
		MaxTokens:         1024,
		DefaultLocation:   envOrDefault("ATLAS_DEFAULT_LOCATION", "Berlin"),
		NewsCacheTTL:      5 * time.Minute,
		SkillTimeout:      10 * time.Second,
		TTSVoice:          envOrDefault("ATLAS_TTS_VOICE", "de-DE-ConradNeural"),
		TTSRate:           envOrDefault("ATLAS_TTS_RATE", "+0%"),
		TTSPitch:          envOrDefault("ATLAS_TTS_PITCH", "+0Hz"),
		TTSTempDir:        envOrDefault("ATLAS_TTS_TEMP_DIR", "/tmp/atlas-tts"),
		STTProvider:       envOrDefault("ATLAS_STT_PROVIDER", "whisper"),
		OpenAIAPIKey:      stringsTrimSpace("OPENAI_API_KEY"),
		DeepgramKey:       stringsTrimSpace("DEEPGRAM_API_KEY"),
		DatabaseURL:       stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:   15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("ATLAS_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextTimeout, err = durationFromEnv("ATLAS_CONTEXT_TIMEOUT", cfg.ContextTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval, err = durationFromEnv("ATLAS_SWEEP_INTERVAL", cfg.SweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.HeartbeatInterval, err = durationFromEnv("ATLAS_HEARTBEAT_INTERVAL", cfg.HeartbeatInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("ATLAS_HISTORY_LIMIT", cfg.HistoryLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxTokens, err = intFromEnv("ATLAS_MAX_TOKENS", cfg.MaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("ATLAS_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("ATLAS_HISTORY_LIMIT must be positive")
	}
	if cfg.ContextTimeout < time.Minute {
		return Config{}, fmt.Errorf("ATLAS_CONTEXT_TIMEOUT must be at least 1m")
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("ATLAS_SWEEP_INTERVAL must be positive")
	}
	if cfg.HeartbeatInterval < 5*time.Second {
		return Config{}, fmt.Errorf("ATLAS_HEARTBEAT_INTERVAL must be at least 5s")
	}
	if cfg.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("ATLAS_MAX_TOKENS must be positive")
	}
	switch strings.ToLower(cfg.STTProvider) {
	case "whisper", "deepgram":
	default:
		return Config{}, fmt.Errorf("invalid ATLAS_STT_PROVIDER: %q (expected whisper|deepgram)", cfg.STTProvider)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
