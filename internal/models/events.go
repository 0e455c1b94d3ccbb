// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package models

import (
	"fmt"
	"time"
)

// EventType identifies a feedback event in the append-only ledger.
type EventType string

const (
	EventShown    EventType = "SHOWN"
	EventDone     EventType = "DONE"
	EventDismiss  EventType = "DISMISS"
	EventSnooze   EventType = "SNOOZE"
	EventIntended EventType = "INTENDED"
)

// Valid reports whether et is a recognized event type.
func (et EventType) Valid() bool {
	switch et {
	case EventShown, EventDone, EventDismiss, EventSnooze, EventIntended:
		return true
	}
	return false
}

// DismissReason qualifies a DISMISS event. Empty means a generic dismissal.
type DismissReason string

const (
	DismissGeneric      DismissReason = ""
	DismissNotRelevant  DismissReason = "not_relevant"
	DismissTooHard      DismissReason = "too_hard"
	DismissAlreadyDoing DismissReason = "already_doing"
)

// Valid reports whether r is a recognized dismiss reason.
func (r DismissReason) Valid() bool {
	switch r {
	case DismissGeneric, DismissNotRelevant, DismissTooHard, DismissAlreadyDoing:
		return true
	}
	return false
}

// TimeContext tags an outcome with when the user acted; snooze cooldowns
// depend on it.
type TimeContext string

const (
	TimeContextWeekend TimeContext = "weekend"
	TimeContextEvening TimeContext = "evening"
	TimeContextDefault TimeContext = ""
)

// FeedbackEvent is one row of the append-only feedback ledger.
type FeedbackEvent struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	RecommendationID string        `json:"recommendation_id"`
	EventType        EventType     `json:"event_type"`
	OccurredAt       time.Time     `json:"occurred_at"`
	Reason           DismissReason `json:"reason,omitempty"`
	TimeContext      TimeContext   `json:"time_context,omitempty"`
}

// Validate checks the event is well-formed before persistence.
func (e *FeedbackEvent) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("feedback event: missing user id")
	}
	if e.RecommendationID == "" {
		return fmt.Errorf("feedback event: missing recommendation id")
	}
	if !e.EventType.Valid() {
		return fmt.Errorf("feedback event: unknown event type %q", e.EventType)
	}
	if e.EventType == EventDismiss && !e.Reason.Valid() {
		return fmt.Errorf("feedback event: unknown dismiss reason %q", e.Reason)
	}
	return nil
}

// EventRef is a compact (action, timestamp) pair returned by history reads.
type EventRef struct {
	ActionID   string    `json:"action_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
