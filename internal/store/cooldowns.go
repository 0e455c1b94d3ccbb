// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/nudgeworks/verdant/internal/metrics"
)

// cooldownRecord stores when an action becomes eligible again.
type cooldownRecord struct {
	Until time.Time `json:"until"`
}

func cooldownKey(userID, actionID string) []byte {
	return []byte(cooldownKeyPrefix + userID + ":" + actionID)
}

// SetCooldown suppresses an action for a user until the given time. The
// entry self-expires via badger TTL.
func (s *Store) SetCooldown(ctx context.Context, userID, actionID string, until time.Time) error {
	start := time.Now()
	defer func() { metrics.RecordStoreOp("set_cooldown", time.Since(start)) }()

	data, err := json.Marshal(cooldownRecord{Until: until})
	if err != nil {
		return fmt.Errorf("marshal cooldown: %w", err)
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(cooldownKey(userID, actionID), data).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

// ActiveCooldowns returns the set of action ids currently suppressed for a
// user. Entries past their until time are skipped even if badger has not
// expired them yet.
func (s *Store) ActiveCooldowns(ctx context.Context, userID string, now time.Time) (map[string]struct{}, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOp("active_cooldowns", time.Since(start)) }()

	prefix := []byte(cooldownKeyPrefix + userID + ":")
	active := make(map[string]struct{})

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec cooldownRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode cooldown: %w", err)
			}
			if rec.Until.After(now) {
				actionID := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
				active[actionID] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return active, nil
}
