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
)

// DoneRecord is one frozen completion row: the impact values computed at
// record time, returned unchanged on every idempotent replay.
type DoneRecord struct {
	UserID     string    `json:"user_id"`
	ActionID   string    `json:"action_id"`
	Day        string    `json:"day"`
	PKR        float64   `json:"pkr"`
	KgCO2e     float64   `json:"kgco2e"`
	Streak     int       `json:"streak"`
	BonusPKR   float64   `json:"bonus_pkr,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func doneKey(userID, actionID, day string) []byte {
	return []byte(doneKeyPrefix + userID + ":" + actionID + ":" + day)
}

// InsertDone inserts the first completion row for (user, action, calendar
// day). If a row already exists, or a concurrent insert wins the race, the
// winning row is returned with inserted=false and no state is modified.
func (s *Store) InsertDone(ctx context.Context, rec DoneRecord) (*DoneRecord, bool, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOp("insert_done", time.Since(start)) }()

	key := doneKey(rec.UserID, rec.ActionID, rec.Day)

	var existing *DoneRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		existing = nil
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var found DoneRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &found)
			}); err != nil {
				return fmt.Errorf("decode done record: %w", err)
			}
			existing = &found
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal done record: %w", err)
			}
			return txn.Set(key, data)
		default:
			return fmt.Errorf("read done record: %w", err)
		}
	})

	// A transaction conflict means a concurrent insert committed first;
	// resolve by reading the winning row rather than erroring.
	if errors.Is(err, badger.ErrConflict) {
		winner, readErr := s.GetDone(ctx, rec.UserID, rec.ActionID, rec.Day)
		if readErr != nil {
			return nil, false, readErr
		}
		if winner != nil {
			return winner, false, nil
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	return &rec, true, nil
}

// GetDone reads a completion row, or nil when absent.
func (s *Store) GetDone(ctx context.Context, userID, actionID, day string) (*DoneRecord, error) {
	var rec DoneRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(doneKey(userID, actionID, day))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get done record: %w", err)
	}
	return &rec, nil
}

// DayKey formats the calendar day used for done-ledger scoping.
func DayKey(t time.Time) string {
	return dayKey(t)
}
