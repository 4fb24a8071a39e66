package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerConfig  ServerConfig  `json:"server"`
	LoggingConfig LoggingConfig `json:"logging"`
	EngineConfig  EngineConfig  `json:"engine"`
	PreviewConfig PreviewConfig `json:"preview"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	ProductionMode  bool   `json:"production_mode"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`     // Seconds
	WriteTimeout    int    `json:"write_timeout"`    // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // Seconds
	RateLimit       int    `json:"rate_limit"`       // Requests per window per endpoint
	RateWindow      int    `json:"rate_window"`      // Seconds
}

type LoggingConfig struct {
	Level      string `json:"level"`       // DEBUG, INFO, WARN, ERROR
	Output     string `json:"output"`      // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"` // Output as JSON
}

// EngineConfig holds allocation engine limits exposed to callers
type EngineConfig struct {
	MaxParticipants int `json:"max_participants"`
}

// PreviewConfig holds live-preview scheduling configuration
type PreviewConfig struct {
	DebounceMs   int `json:"debounce_ms"`    // Quiescence window before recalculating
	SessionTTLMs int `json:"session_ttl_ms"` // Idle session expiry
}

// Debounce returns the preview quiescence window, clamped to the
// 150-250ms band the live-preview contract specifies.
func (p PreviewConfig) Debounce() time.Duration {
	ms := p.DebounceMs
	if ms < 150 {
		ms = 150
	}
	if ms > 250 {
		ms = 250
	}
	return time.Duration(ms) * time.Millisecond
}

// SessionTTL returns the idle session expiry.
func (p PreviewConfig) SessionTTL() time.Duration {
	if p.SessionTTLMs <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(p.SessionTTLMs) * time.Millisecond
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", defaultStr(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("PRODUCTION_MODE", boolStr(cfg.ServerConfig.ProductionMode)) == "true"
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", defaultStr(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", defaultInt(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", defaultInt(cfg.ServerConfig.WriteTimeout, 30))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", defaultInt(cfg.ServerConfig.ShutdownTimeout, 10))
	cfg.ServerConfig.RateLimit = getEnvIntOrDefault("SERVER_RATE_LIMIT", defaultInt(cfg.ServerConfig.RateLimit, 120))
	cfg.ServerConfig.RateWindow = getEnvIntOrDefault("SERVER_RATE_WINDOW", defaultInt(cfg.ServerConfig.RateWindow, 60))

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultStr(cfg.LoggingConfig.Level, "INFO"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", defaultStr(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", boolStr(cfg.LoggingConfig.JSONFormat)) == "true"

	// Engine config
	cfg.EngineConfig.MaxParticipants = getEnvIntOrDefault("ENGINE_MAX_PARTICIPANTS", defaultInt(cfg.EngineConfig.MaxParticipants, 20))

	// Preview config
	cfg.PreviewConfig.DebounceMs = getEnvIntOrDefault("PREVIEW_DEBOUNCE_MS", defaultInt(cfg.PreviewConfig.DebounceMs, 200))
	cfg.PreviewConfig.SessionTTLMs = getEnvIntOrDefault("PREVIEW_SESSION_TTL_MS", defaultInt(cfg.PreviewConfig.SessionTTLMs, 600000))
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func boolStr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
