// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

// Package config loads and validates service configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables, with later layers taking precedence.
package config

import (
	"fmt"
	"time"

	"github.com/nudgeworks/verdant/internal/logging"
	"github.com/nudgeworks/verdant/internal/recommend"
)

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Store     StoreConfig      `koanf:"store"`
	Catalog   CatalogConfig    `koanf:"catalog"`
	Recommend recommend.Config `koanf:"recommend"`
	Profile   ProfileConfig    `koanf:"profile"`
	Security  SecurityConfig   `koanf:"security"`
	Logging   logging.Config   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig holds Badger storage settings.
type StoreConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// CatalogConfig holds the action catalog source.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// ProfileConfig holds the profile source and classifier settings.
type ProfileConfig struct {
	Path              string        `koanf:"path"`
	ClassifierURL     string        `koanf:"classifier_url"`
	ClassifierTimeout time.Duration `koanf:"classifier_timeout"`
}

// SecurityConfig holds the outer HTTP surface settings.
type SecurityConfig struct {
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// defaultConfig returns built-in defaults, applied before file and env
// layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8940,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Path:       "/data/verdant",
			InMemory:   false,
			GCInterval: 10 * time.Minute,
		},
		Catalog: CatalogConfig{
			Path: "/data/catalog.json",
		},
		Recommend: recommend.DefaultConfig(),
		Profile: ProfileConfig{
			Path:              "/data/profiles.json",
			ClassifierURL:     "", // Empty disables the external classifier
			ClassifierTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for values that would prevent the
// service from operating.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required when store.in_memory is false")
	}
	if c.Store.GCInterval < time.Minute {
		return fmt.Errorf("store.gc_interval %s below 1m minimum", c.Store.GCInterval)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	if c.Profile.Path == "" {
		return fmt.Errorf("profile.path is required")
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("security.rate_limit_reqs must be positive")
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return nil
}
