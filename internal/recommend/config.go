// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package recommend

import (
	"fmt"
	"time"
)

// Config controls ranking behavior.
type Config struct {
	// TopK is how many items a rank call surfaces (primary + alternatives).
	TopK int `json:"top_k" koanf:"top_k"`

	// MMRLambda balances relevance against diversity in the reranker.
	// 1.0 degenerates to plain top-k by score.
	MMRLambda float64 `json:"mmr_lambda" koanf:"mmr_lambda"`

	// HistoryLimit bounds event-history reads per ranking call.
	HistoryLimit int `json:"history_limit" koanf:"history_limit"`

	// DismissWindowDays is how long a dismissal keeps penalizing an item.
	DismissWindowDays int `json:"dismiss_window_days" koanf:"dismiss_window_days"`

	// SnoozeWindowDays is how long a snooze keeps an item filtered.
	SnoozeWindowDays int `json:"snooze_window_days" koanf:"snooze_window_days"`

	// WeightCacheTTL bounds how long persona-derived weights are reused
	// before re-derivation.
	WeightCacheTTL time.Duration `json:"weight_cache_ttl" koanf:"weight_cache_ttl"`

	// WeightCacheSize is the LRU capacity for derived weights.
	WeightCacheSize int `json:"weight_cache_size" koanf:"weight_cache_size"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		TopK:              3,
		MMRLambda:         0.75,
		HistoryLimit:      60,
		DismissWindowDays: 30,
		SnoozeWindowDays:  7,
		WeightCacheTTL:    15 * time.Minute,
		WeightCacheSize:   4096,
	}
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	if c.TopK < 1 {
		return fmt.Errorf("recommend config: top_k must be >= 1, got %d", c.TopK)
	}
	if c.MMRLambda < 0 || c.MMRLambda > 1 {
		return fmt.Errorf("recommend config: mmr_lambda must be in [0,1], got %f", c.MMRLambda)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("recommend config: history_limit must be >= 1, got %d", c.HistoryLimit)
	}
	if c.DismissWindowDays < 0 {
		return fmt.Errorf("recommend config: dismiss_window_days must be >= 0, got %d", c.DismissWindowDays)
	}
	if c.SnoozeWindowDays < 0 {
		return fmt.Errorf("recommend config: snooze_window_days must be >= 0, got %d", c.SnoozeWindowDays)
	}
	if c.WeightCacheTTL < 0 {
		return fmt.Errorf("recommend config: weight_cache_ttl must be >= 0, got %s", c.WeightCacheTTL)
	}
	if c.WeightCacheSize < 1 {
		return fmt.Errorf("recommend config: weight_cache_size must be >= 1, got %d", c.WeightCacheSize)
	}
	return nil
}
