// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package services

import (
	"context"
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// GarbageCollector reclaims storage space. Satisfied by *store.Store.
type GarbageCollector interface {
	RunGC() error
}

// GCService runs Badger value log garbage collection on a fixed
// interval.
type GCService struct {
	store    GarbageCollector
	interval time.Duration
	logger   zerolog.Logger
}

// NewGCService creates a GC loop. interval must be at least one minute;
// shorter values are raised to that floor.
func NewGCService(store GarbageCollector, interval time.Duration, logger zerolog.Logger) *GCService {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &GCService{
		store:    store,
		interval: interval,
		logger:   logger.With().Str("component", "gc-service").Logger(),
	}
}

// Serve implements suture.Service.
func (s *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("store GC loop started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *GCService) runOnce() {
	start := time.Now()
	// Badger returns ErrNoRewrite when no log file met the discard
	// ratio; that is the normal idle outcome, not a failure.
	err := s.store.RunGC()
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		s.logger.Warn().Err(err).Msg("store GC failed")
		return
	}
	if err == nil {
		s.logger.Debug().Dur("duration", time.Since(start)).Msg("store GC reclaimed space")
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *GCService) String() string {
	return "gc-service"
}
