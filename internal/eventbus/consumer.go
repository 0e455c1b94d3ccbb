// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/nudgeworks/verdant/internal/models"
)

// EventHandler processes one decoded feedback event. Returning an error
// logs the failure; the message is acked either way because the store is
// the system of record and redelivery cannot improve a decode failure.
type EventHandler func(ctx context.Context, event models.FeedbackEvent) error

// Consumer drains the feedback topic and dispatches decoded events to a
// handler. Runs as a supervised service.
type Consumer struct {
	bus     *Bus
	handler EventHandler
	logger  zerolog.Logger
}

// NewConsumer builds a consumer. handler may be nil for a drain-only
// consumer that just keeps the topic from backing up.
func NewConsumer(bus *Bus, handler EventHandler, logger zerolog.Logger) *Consumer {
	return &Consumer{
		bus:     bus,
		handler: handler,
		logger:  logger.With().Str("component", "eventbus-consumer").Logger(),
	}
}

// Serve consumes until ctx is cancelled. Satisfies suture.Service.
func (c *Consumer) Serve(ctx context.Context) error {
	msgs, err := c.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var event models.FeedbackEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("undecodable feedback event dropped")
		return
	}

	if c.handler == nil {
		return
	}
	if err := c.handler(ctx, event); err != nil {
		c.logger.Error().Err(err).
			Str("event_id", event.ID).
			Str("event_type", string(event.EventType)).
			Msg("feedback event handler failed")
	}
}

// String implements fmt.Stringer for supervisor logs.
func (c *Consumer) String() string { return "eventbus-consumer" }
