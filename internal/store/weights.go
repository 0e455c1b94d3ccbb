// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/nudgeworks/verdant/internal/metrics"
	"github.com/nudgeworks/verdant/internal/models"
)

// maxWeightWriteRetries bounds the optimistic-write retry loop.
const maxWeightWriteRetries = 5

// GetWeightState loads a user's adapted weight state. Returns (nil, nil)
// when the user has no adapted state yet.
func (s *Store) GetWeightState(ctx context.Context, userID string) (*models.WeightState, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOp("get_weights", time.Since(start)) }()

	var state models.WeightState
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(weightsKeyPrefix + userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get weight state: %w", err)
	}
	return &state, nil
}

// putWeightState writes a weight state conditionally: the stored version
// must equal expectedVersion (0 for a first write). The stored record gets
// expectedVersion+1.
func (s *Store) putWeightState(userID string, weights models.WeightPreferences, expectedVersion uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(weightsKeyPrefix + userID)

		var current models.WeightState
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// No record yet; only a version-0 write may create one.
		case err != nil:
			return fmt.Errorf("read weight state: %w", err)
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &current)
			}); err != nil {
				return fmt.Errorf("decode weight state: %w", err)
			}
		}
		if current.Version != expectedVersion {
			return ErrVersionConflict
		}

		next := models.WeightState{
			UserID:    userID,
			Weights:   weights,
			Version:   expectedVersion + 1,
			UpdatedAt: time.Now().UTC(),
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal weight state: %w", err)
		}
		return txn.Set(key, data)
	})
}

// UpdateWeights applies fn to the user's current weights under optimistic
// concurrency: load with version, mutate a copy, conditionally write, and
// retry from a fresh read on conflict. A badger transaction conflict is
// treated the same as a version mismatch.
func (s *Store) UpdateWeights(ctx context.Context, userID string, fn func(w *models.WeightPreferences)) (models.WeightPreferences, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOp("update_weights", time.Since(start)) }()

	for attempt := 0; attempt < maxWeightWriteRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.WeightPreferences{}, err
		}

		state, err := s.GetWeightState(ctx, userID)
		if err != nil {
			return models.WeightPreferences{}, err
		}

		var weights models.WeightPreferences
		var version uint64
		if state != nil {
			weights = state.Weights
			version = state.Version
		} else {
			weights = models.BaseWeights()
		}

		fn(&weights)
		weights.Clamp()

		err = s.putWeightState(userID, weights, version)
		if err == nil {
			return weights, nil
		}
		if errors.Is(err, ErrVersionConflict) || errors.Is(err, badger.ErrConflict) {
			metrics.WeightWriteConflicts.Inc()
			s.logger.Debug().Str("user_id", userID).Int("attempt", attempt+1).Msg("weight write conflict, retrying")
			continue
		}
		return models.WeightPreferences{}, err
	}
	return models.WeightPreferences{}, fmt.Errorf("update weights for %s: %w", userID, ErrVersionConflict)
}
