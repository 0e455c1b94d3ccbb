// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/nudgeworks/verdant/internal/metrics"
	"github.com/nudgeworks/verdant/internal/models"
)

// eventKey layout: event:<user>:<type>:<reverse-ts>:<uuid>
// The reverse timestamp makes prefix iteration newest-first.
func eventKey(e *models.FeedbackEvent) []byte {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	return []byte(eventKeyPrefix + e.UserID + ":" + string(e.EventType) + ":" + reverseTimestamp(e.OccurredAt) + ":" + id)
}

// Append writes one feedback event to the ledger. Events are never
// mutated or deleted.
func (s *Store) Append(ctx context.Context, event models.FeedbackEvent) error {
	start := time.Now()
	defer func() { metrics.RecordStoreOp("append_event", time.Since(start)) }()

	if err := event.Validate(); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(&event), data)
	})
}

// RecentEvents returns up to limit (actionId, timestamp) refs of one event
// type for a user, newest first.
func (s *Store) RecentEvents(ctx context.Context, userID string, et models.EventType, limit int) ([]models.EventRef, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOp("recent_events", time.Since(start)) }()

	if limit <= 0 {
		limit = 60
	}
	prefix := []byte(eventKeyPrefix + userID + ":" + string(et) + ":")
	refs := make([]models.EventRef, 0, limit)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(refs) < limit; it.Next() {
			var event models.FeedbackEvent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			}); err != nil {
				return fmt.Errorf("decode event: %w", err)
			}
			refs = append(refs, models.EventRef{
				ActionID:   event.RecommendationID,
				OccurredAt: event.OccurredAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}
