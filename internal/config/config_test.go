package config

import (
	"testing"
	"time"
)

func TestEnvStr(t *testing.T) {
	t.Setenv("TEST_STR", "value")
	if v := envStr("TEST_STR", "fallback"); v != "value" {
		t.Fatalf("expected value, got %q", v)
	}
	if v := envStr("TEST_STR_MISSING", "fallback"); v != "fallback" {
		t.Fatalf("expected fallback, got %q", v)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if v := envInt("TEST_INT", 0); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
	if v := envInt("TEST_INT_MISSING", 99); v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
	t.Setenv("TEST_INT_BAD", "abc")
	if v := envInt("TEST_INT_BAD", 7); v != 7 {
		t.Fatalf("expected fallback 7 for invalid value, got %d", v)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	if !envBool("TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	t.Setenv("TEST_BOOL_BAD", "maybe")
	if envBool("TEST_BOOL_BAD", false) {
		t.Fatal("expected fallback false for invalid value")
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "5s")
	if v := envDuration("TEST_DUR", 0); v != 5*time.Second {
		t.Fatalf("expected 5s, got %s", v)
	}
	t.Setenv("TEST_DUR_BAD", "five-seconds")
	if v := envDuration("TEST_DUR_BAD", time.Minute); v != time.Minute {
		t.Fatalf("expected fallback 1m for invalid value, got %s", v)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.SQLitePath == "" {
		t.Fatal("expected a default sqlite path")
	}
	if cfg.ServiceName != "takuto" {
		t.Fatalf("expected service name takuto, got %q", cfg.ServiceName)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]Config{
		"bad port":          {Port: -1, SQLitePath: "x.db", JWTExpiration: time.Hour, AnalysisTimeout: time.Minute, MaxRequestBodyBytes: 1},
		"no store":          {Port: 8080, JWTExpiration: time.Hour, AnalysisTimeout: time.Minute, MaxRequestBodyBytes: 1},
		"bad expiration":    {Port: 8080, SQLitePath: "x.db", AnalysisTimeout: time.Minute, MaxRequestBodyBytes: 1},
		"bad timeout":       {Port: 8080, SQLitePath: "x.db", JWTExpiration: time.Hour, MaxRequestBodyBytes: 1},
		"bad request limit": {Port: 8080, SQLitePath: "x.db", JWTExpiration: time.Hour, AnalysisTimeout: time.Minute},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	good := Config{Port: 8080, SQLitePath: "x.db", JWTExpiration: time.Hour, AnalysisTimeout: time.Minute, MaxRequestBodyBytes: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
