package config

import (
	"testing"
)

// relevantVars lists every variable Load reads, so tests can pin the
// environment regardless of the host shell.
var relevantVars = []string{
	"PORT", "ENV", "DATABASE_PATH", "REMOTE_BASE_URL", "CATALOG_REFRESH",
	"SEARCH_THRESHOLD", "SEARCH_LIMIT", "API_KEY", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range relevantVars {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.DatabasePath != "./data/liturgy.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.RemoteBaseURL != "" {
		t.Errorf("RemoteBaseURL = %q, want empty", cfg.RemoteBaseURL)
	}
	if cfg.CatalogRefresh != "@daily" {
		t.Errorf("CatalogRefresh = %q, want @daily", cfg.CatalogRefresh)
	}
	if cfg.SearchThreshold != 0.9 {
		t.Errorf("SearchThreshold = %g, want 0.9", cfg.SearchThreshold)
	}
	if cfg.SearchLimit != 6 {
		t.Errorf("SearchLimit = %d, want 6", cfg.SearchLimit)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("logging defaults: %q %q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", EnvStaging)
	t.Setenv("REMOTE_BASE_URL", "http://localhost:3000")
	t.Setenv("CATALOG_REFRESH", "@hourly")
	t.Setenv("SEARCH_THRESHOLD", "0.75")
	t.Setenv("SEARCH_LIMIT", "10")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Env != EnvStaging {
		t.Errorf("Env = %q, want staging", cfg.Env)
	}
	if cfg.RemoteBaseURL != "http://localhost:3000" {
		t.Errorf("RemoteBaseURL = %q", cfg.RemoteBaseURL)
	}
	if cfg.CatalogRefresh != "@hourly" {
		t.Errorf("CatalogRefresh = %q", cfg.CatalogRefresh)
	}
	if cfg.SearchThreshold != 0.75 {
		t.Errorf("SearchThreshold = %g, want 0.75", cfg.SearchThreshold)
	}
	if cfg.SearchLimit != 10 {
		t.Errorf("SearchLimit = %d, want 10", cfg.SearchLimit)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")
	t.Setenv("SEARCH_THRESHOLD", "high")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("unparsable PORT should fall back, got %d", cfg.Port)
	}
	if cfg.SearchThreshold != 0.9 {
		t.Errorf("unparsable SEARCH_THRESHOLD should fall back, got %g", cfg.SearchThreshold)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:            8080,
			Env:             EnvDevelopment,
			DatabasePath:    "./data/liturgy.db",
			SearchThreshold: 0.9,
			SearchLimit:     6,
			LogLevel:        "info",
			LogFormat:       "text",
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"bad env", func(c *Config) { c.Env = "testing" }},
		{"no database and no remote", func(c *Config) { c.DatabasePath = "" }},
		{"threshold too low", func(c *Config) { c.SearchThreshold = 0 }},
		{"threshold too high", func(c *Config) { c.SearchThreshold = 1 }},
		{"limit zero", func(c *Config) { c.SearchLimit = 0 }},
		{"production without key", func(c *Config) { c.Env = EnvProduction }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_RemoteModeNeedsNoDatabase(t *testing.T) {
	cfg := &Config{
		Port:            8080,
		Env:             EnvDevelopment,
		RemoteBaseURL:   "http://localhost:3000",
		SearchThreshold: 0.9,
		SearchLimit:     6,
		LogLevel:        "info",
		LogFormat:       "text",
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("remote-mode config rejected: %v", err)
	}
}

func TestEnvironmentHelpers(t *testing.T) {
	dev := &Config{Env: EnvDevelopment}
	if !dev.IsDevelopment() || dev.IsProduction() {
		t.Error("development helpers wrong")
	}

	prod := &Config{Env: EnvProduction}
	if prod.IsDevelopment() || !prod.IsProduction() {
		t.Error("production helpers wrong")
	}
}
