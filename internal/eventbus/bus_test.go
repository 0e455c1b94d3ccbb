// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/nudgeworks/verdant/internal/models"
)

func testEvent(id string) models.FeedbackEvent {
	return models.FeedbackEvent{
		ID:               id,
		UserID:           "alice",
		RecommendationID: "solar-geyser",
		EventType:        models.EventDone,
		OccurredAt:       time.Now().UTC(),
	}
}

func TestPublishFeedbackDeliversToSubscriber(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := bus.PublishFeedback(testEvent("evt-1")); err != nil {
		t.Fatalf("PublishFeedback: %v", err)
	}

	select {
	case msg := <-msgs:
		if msg.UUID != "evt-1" {
			t.Errorf("message UUID = %q, want evt-1", msg.UUID)
		}
		if got := msg.Metadata.Get("event_type"); got != "DONE" {
			t.Errorf("event_type metadata = %q, want DONE", got)
		}
		if got := msg.Metadata.Get("user_id"); got != "alice" {
			t.Errorf("user_id metadata = %q, want alice", got)
		}
		var decoded models.FeedbackEvent
		if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
			t.Fatalf("payload decode: %v", err)
		}
		if decoded.RecommendationID != "solar-geyser" {
			t.Errorf("RecommendationID = %q", decoded.RecommendationID)
		}
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestPublishAfterCloseFails(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bus.PublishFeedback(testEvent("evt-1")); err == nil {
		t.Fatal("PublishFeedback should fail after Close")
	}
	// Close is idempotent.
	if err := bus.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestConsumerDispatchesDecodedEvents(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []string
	handler := func(_ context.Context, event models.FeedbackEvent) error {
		mu.Lock()
		seen = append(seen, event.ID)
		mu.Unlock()
		return nil
	}

	consumer := NewConsumer(bus, handler, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Serve(ctx)
	}()

	// Give the subscription a moment to attach before publishing.
	time.Sleep(50 * time.Millisecond)

	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		if err := bus.PublishFeedback(testEvent(id)); err != nil {
			t.Fatalf("PublishFeedback(%s): %v", id, err)
		}
	}

	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("saw %d events, want 3", n)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop on cancel")
	}
}
