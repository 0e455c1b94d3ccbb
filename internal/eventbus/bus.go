// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

// Package eventbus carries accepted feedback events over an in-process
// Watermill Pub/Sub. Ranking and outcome handling publish fire-and-forget;
// consumers (metrics today, analytics sinks later) subscribe independently.
package eventbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/nudgeworks/verdant/internal/metrics"
	"github.com/nudgeworks/verdant/internal/models"
)

// TopicFeedback is the topic all feedback events are published to.
const TopicFeedback = "feedback.events"

// Bus wraps an in-process GoChannel Pub/Sub for feedback events.
// Messages are not persistent; the store is the system of record and the
// bus only fans events out to live consumers.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger
	mu     sync.RWMutex
	closed bool
}

// NewBus creates the in-process bus. Buffer sizing keeps slow consumers
// from backpressuring the request path under normal load.
func NewBus(logger zerolog.Logger) *Bus {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 256,
		},
		NewWatermillLogger(logger.With().Str("component", "eventbus").Logger()),
	)

	return &Bus{
		pubsub: pubsub,
		logger: logger.With().Str("component", "eventbus").Logger(),
	}
}

// PublishFeedback serializes and publishes one feedback event. The event
// ID becomes the message UUID so consumers can deduplicate.
func (b *Bus) PublishFeedback(event models.FeedbackEvent) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("event bus is closed")
	}
	b.mu.RUnlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize feedback event: %w", err)
	}

	msg := message.NewMessage(event.ID, data)
	msg.Metadata.Set("event_type", string(event.EventType))
	msg.Metadata.Set("user_id", event.UserID)

	if err := b.pubsub.Publish(TopicFeedback, msg); err != nil {
		return fmt.Errorf("publish feedback event: %w", err)
	}

	metrics.FeedbackEventsPublished.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

// Subscribe returns a channel of raw feedback messages. The subscription
// lives until ctx is cancelled or the bus closes.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, TopicFeedback)
}

// Close shuts the bus down. Pending deliveries are dropped.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	return b.pubsub.Close()
}
