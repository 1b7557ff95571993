// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database settings. When DatabaseURL is empty the server falls back
	// to the embedded SQLite store at SQLitePath.
	DatabaseURL string
	SQLitePath  string

	// Agent roster. Empty means the built-in default lineup.
	RosterPath string

	// Auth settings.
	APIKey        string // Static API key exchanged for a session token.
	JWTExpiration time.Duration

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel            string
	AnalysisTimeout     time.Duration // Upper bound on one orchestration call.
	MaxRequestBodyBytes int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                envInt("TAKUTO_PORT", 8080),
		ReadTimeout:         envDuration("TAKUTO_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        envDuration("TAKUTO_WRITE_TIMEOUT", 60*time.Second),
		DatabaseURL:         envStr("DATABASE_URL", ""),
		SQLitePath:          envStr("TAKUTO_SQLITE_PATH", "takuto.db"),
		RosterPath:          envStr("TAKUTO_ROSTER_PATH", ""),
		APIKey:              envStr("TAKUTO_API_KEY", ""),
		JWTExpiration:       envDuration("TAKUTO_JWT_EXPIRATION", 24*time.Hour),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "takuto"),
		LogLevel:            envStr("TAKUTO_LOG_LEVEL", "info"),
		AnalysisTimeout:     envDuration("TAKUTO_ANALYSIS_TIMEOUT", 2*time.Minute),
		MaxRequestBodyBytes: int64(envInt("TAKUTO_MAX_REQUEST_BODY_BYTES", 1*1024*1024)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and coherent.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: TAKUTO_PORT must be in (0,65535]")
	}
	if c.DatabaseURL == "" && c.SQLitePath == "" {
		return fmt.Errorf("config: one of DATABASE_URL or TAKUTO_SQLITE_PATH is required")
	}
	if c.JWTExpiration <= 0 {
		return fmt.Errorf("config: TAKUTO_JWT_EXPIRATION must be positive")
	}
	if c.AnalysisTimeout <= 0 {
		return fmt.Errorf("config: TAKUTO_ANALYSIS_TIMEOUT must be positive")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: TAKUTO_MAX_REQUEST_BODY_BYTES must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
