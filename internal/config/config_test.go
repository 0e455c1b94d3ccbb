// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8940 {
		t.Errorf("Server.Port = %d, want 8940", cfg.Server.Port)
	}
	if cfg.Recommend.TopK != 3 {
		t.Errorf("Recommend.TopK = %d, want 3", cfg.Recommend.TopK)
	}
	if cfg.Recommend.MMRLambda != 0.75 {
		t.Errorf("Recommend.MMRLambda = %v, want 0.75", cfg.Recommend.MMRLambda)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RECOMMEND_TOP_K", "5")
	t.Setenv("STORE_GC_INTERVAL", "5m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Recommend.TopK != 5 {
		t.Errorf("Recommend.TopK = %d, want 5", cfg.Recommend.TopK)
	}
	if cfg.Store.GCInterval != 5*time.Minute {
		t.Errorf("Store.GCInterval = %s, want 5m", cfg.Store.GCInterval)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 8100
recommend:
  top_k: 4
  mmr_lambda: 0.5
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8100 {
		t.Errorf("Server.Port = %d, want 8100 from file", cfg.Server.Port)
	}
	if cfg.Recommend.TopK != 4 || cfg.Recommend.MMRLambda != 0.5 {
		t.Errorf("Recommend = %+v", cfg.Recommend)
	}
	// Unset sections keep defaults.
	if cfg.Store.Path != "/data/verdant" {
		t.Errorf("Store.Path = %q, want default", cfg.Store.Path)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8100\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want env to beat file", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"missing store path", func(c *Config) { c.Store.Path = ""; c.Store.InMemory = false }},
		{"gc interval too short", func(c *Config) { c.Store.GCInterval = time.Second }},
		{"missing catalog path", func(c *Config) { c.Catalog.Path = "" }},
		{"missing profile path", func(c *Config) { c.Profile.Path = "" }},
		{"zero rate limit", func(c *Config) { c.Security.RateLimitReqs = 0 }},
		{"bad lambda", func(c *Config) { c.Recommend.MMRLambda = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate should fail")
			}
		})
	}
}

func TestUnmappedEnvVarsIgnored(t *testing.T) {
	if got := envTransformFunc("RANDOM_HOST_VAR"); got != "" {
		t.Errorf("envTransformFunc(RANDOM_HOST_VAR) = %q, want empty", got)
	}
}
