// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/nudgeworks/verdant/internal/models"
)

// GetStreak loads a user's streak state, or a zero record when absent.
func (s *Store) GetStreak(ctx context.Context, userID string) (*models.StreakState, error) {
	var streak models.StreakState
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(streakKeyPrefix + userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &streak)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return &models.StreakState{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	return &streak, nil
}

// PutStreak writes a user's streak state.
func (s *Store) PutStreak(ctx context.Context, streak *models.StreakState) error {
	data, err := json.Marshal(streak)
	if err != nil {
		return fmt.Errorf("marshal streak: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(streakKeyPrefix+streak.UserID), data)
	})
}
