// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CacheCleaner drops expired entries and reports how many were removed.
type CacheCleaner interface {
	CleanupWeightCache() int
}

// CacheMaintenanceService periodically evicts expired derived-weight
// cache entries so idle users do not pin stale weights in memory.
type CacheMaintenanceService struct {
	cleaner  CacheCleaner
	interval time.Duration
	logger   zerolog.Logger
}

// NewCacheMaintenanceService creates the cleanup loop. A zero interval
// defaults to five minutes.
func NewCacheMaintenanceService(cleaner CacheCleaner, interval time.Duration, logger zerolog.Logger) *CacheMaintenanceService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CacheMaintenanceService{
		cleaner:  cleaner,
		interval: interval,
		logger:   logger.With().Str("component", "cache-maintenance").Logger(),
	}
}

// Serve implements suture.Service.
func (s *CacheMaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := s.cleaner.CleanupWeightCache(); removed > 0 {
				s.logger.Debug().Int("removed", removed).Msg("expired weight cache entries evicted")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *CacheMaintenanceService) String() string {
	return "cache-maintenance"
}
