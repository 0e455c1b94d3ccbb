// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

// Package store persists per-user state in BadgerDB: versioned weight
// records, the append-only feedback ledger, the daily done-ledger,
// cooldowns, and streaks.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Key prefixes for BadgerDB storage.
const (
	weightsKeyPrefix  = "weights:"
	eventKeyPrefix    = "event:"
	doneKeyPrefix     = "done:"
	cooldownKeyPrefix = "cooldown:"
	streakKeyPrefix   = "streak:"
)

// ErrVersionConflict signals an optimistic weight-state write that lost a
// race; callers reload and retry.
var ErrVersionConflict = errors.New("weight state version conflict")

// Store wraps one BadgerDB instance shared by all persistence concerns.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Options configures the underlying BadgerDB.
type Options struct {
	Path     string
	InMemory bool
}

// Open opens (or creates) the store.
func Open(opts Options, logger zerolog.Logger) (*Store, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Path, err)
	}
	return &Store{db: db, logger: logger.With().Str("component", "store").Logger()}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC performs one value-log garbage collection pass. Returns
// badger.ErrNoRewrite when nothing needed collecting.
func (s *Store) RunGC() error {
	return s.db.RunValueLogGC(0.5)
}

// dayKey formats a calendar day for done-ledger keys.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// reverseTimestamp produces a lexically descending key component so prefix
// iteration yields newest entries first.
func reverseTimestamp(t time.Time) string {
	return fmt.Sprintf("%020d", int64(^uint64(0)>>1)-t.UnixNano())
}
