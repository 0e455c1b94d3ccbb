// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

// Package learner turns user outcome events into bounded weight-state
// updates, streak bookkeeping, cooldowns, and an idempotent done-ledger.
package learner

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nudgeworks/verdant/internal/metrics"
	"github.com/nudgeworks/verdant/internal/models"
	"github.com/nudgeworks/verdant/internal/recommend"
	"github.com/nudgeworks/verdant/internal/store"
)

// effortFloor is where the effort weight settles after repeated completions.
const effortFloor = 0.8

// bonusChance is the probability of a randomized reward on completion.
const bonusChance = 0.15

// Storage is the persistence surface the learner writes through.
// *store.Store satisfies it.
type Storage interface {
	Append(ctx context.Context, event models.FeedbackEvent) error
	UpdateWeights(ctx context.Context, userID string, fn func(w *models.WeightPreferences)) (models.WeightPreferences, error)
	InsertDone(ctx context.Context, rec store.DoneRecord) (*store.DoneRecord, bool, error)
	GetStreak(ctx context.Context, userID string) (*models.StreakState, error)
	PutStreak(ctx context.Context, streak *models.StreakState) error
	SetCooldown(ctx context.Context, userID, actionID string, until time.Time) error
}

// Learner records outcome events and adapts per-user weights.
type Learner struct {
	logger    zerolog.Logger
	storage   Storage
	catalog   recommend.CatalogProvider
	profiles  recommend.ProfileStore
	publisher recommend.EventPublisher

	// onWeightsChanged lets the engine drop stale cached derivations.
	onWeightsChanged func(userID string)

	// randFloat and randBonus are injectable for deterministic tests.
	randFloat func() float64
	randBonus func() float64
}

// New wires a learner. publisher and onWeightsChanged may be nil.
func New(logger zerolog.Logger, storage Storage, catalog recommend.CatalogProvider, profiles recommend.ProfileStore, publisher recommend.EventPublisher, onWeightsChanged func(string)) (*Learner, error) {
	if storage == nil || catalog == nil || profiles == nil {
		return nil, fmt.Errorf("learner: storage, catalog and profiles are required")
	}
	return &Learner{
		logger:           logger.With().Str("component", "learner").Logger(),
		storage:          storage,
		catalog:          catalog,
		profiles:         profiles,
		publisher:        publisher,
		onWeightsChanged: onWeightsChanged,
		randFloat:        rand.Float64,
		randBonus:        rand.Float64,
	}, nil
}

// RecordOutcome validates, persists, and applies one outcome event.
// Validation happens before any write; unknown users and actions fail fast
// with the NotFound sentinels, unrecognized outcomes with ErrInvalidOutcome.
func (l *Learner) RecordOutcome(ctx context.Context, req OutcomeRequest) (*OutcomeResult, error) {
	outcome, err := req.outcome()
	if err != nil {
		return nil, err
	}

	if _, err := l.profiles.GetProfile(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("record outcome: %w", err)
	}
	item, err := l.catalog.GetCandidate(ctx, req.RecommendationID)
	if err != nil {
		return nil, fmt.Errorf("record outcome: %w", err)
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var result *OutcomeResult
	switch o := outcome.(type) {
	case doneOutcome:
		result, err = l.handleDone(ctx, req, item, now)
	case dismissOutcome:
		result, err = l.handleDismiss(ctx, req, o.reason, now)
	case snoozeOutcome:
		result, err = l.handleSnooze(ctx, req, o.timeContext, now)
	case intendedOutcome:
		result, err = l.handleIntended(ctx, req, now)
	default:
		// outcome() only constructs the four variants above.
		return nil, models.ErrInvalidOutcome
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordOutcome(string(req.Outcome))
	if l.onWeightsChanged != nil && !result.Duplicate {
		l.onWeightsChanged(req.UserID)
	}
	return result, nil
}

// handleDone applies the completion path: idempotent ledger insert, streak
// bookkeeping, bonus roll, and the positive weight nudge.
func (l *Learner) handleDone(ctx context.Context, req OutcomeRequest, item *models.CandidateItem, now time.Time) (*OutcomeResult, error) {
	day := store.DayKey(now)

	streak, err := l.storage.GetStreak(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	nextStreak := advanceStreak(streak, now)

	var bonus float64
	if l.randFloat() < bonusChance {
		bonus = bonusAmount(l.randBonus())
	}

	rec := store.DoneRecord{
		UserID:     req.UserID,
		ActionID:   req.RecommendationID,
		Day:        day,
		PKR:        item.Metrics.PKRPerMonth,
		KgCO2e:     item.Metrics.KgCO2ePerMonth,
		Streak:     nextStreak,
		BonusPKR:   bonus,
		RecordedAt: now,
	}

	winner, inserted, err := l.storage.InsertDone(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Idempotent replay: return the frozen row, touch nothing.
		metrics.OutcomeDuplicates.Inc()
		return doneResult(winner, true), nil
	}

	streak.Current = nextStreak
	if streak.Current > streak.Longest {
		streak.Longest = streak.Current
	}
	streak.LastDoneAt = now
	if err := l.storage.PutStreak(ctx, streak); err != nil {
		return nil, err
	}

	if err := l.appendAndPublish(ctx, req, models.EventDone, now); err != nil {
		return nil, err
	}

	topDim := item.TopUtilityDimension()
	if _, err := l.storage.UpdateWeights(ctx, req.UserID, func(w *models.WeightPreferences) {
		if f := w.Field(topDim); f != nil {
			*f += 0.05
		}
		if w.Effort > effortFloor {
			w.Effort *= 0.95
			if w.Effort < effortFloor {
				w.Effort = effortFloor
			}
		}
	}); err != nil {
		return nil, err
	}
	if bonus > 0 {
		metrics.BonusAwards.Inc()
	}

	l.logger.Info().
		Str("user_id", req.UserID).
		Str("action_id", req.RecommendationID).
		Int("streak", streak.Current).
		Float64("bonus", bonus).
		Msg("completion recorded")

	return doneResult(winner, false), nil
}

func (l *Learner) handleDismiss(ctx context.Context, req OutcomeRequest, reason models.DismissReason, now time.Time) (*OutcomeResult, error) {
	if err := l.appendAndPublish(ctx, req, models.EventDismiss, now); err != nil {
		return nil, err
	}

	deltas := dismissDeltas(reason)
	cooldownDays := dismissCooldownDays(reason)

	if _, err := l.storage.UpdateWeights(ctx, req.UserID, applyDeltas(deltas)); err != nil {
		return nil, err
	}
	if cooldownDays > 0 {
		until := now.AddDate(0, 0, cooldownDays)
		if err := l.storage.SetCooldown(ctx, req.UserID, req.RecommendationID, until); err != nil {
			return nil, err
		}
	}

	return &OutcomeResult{
		Outcome:      OutcomeDismiss,
		CooldownDays: cooldownDays,
		WeightDeltas: deltas,
	}, nil
}

func (l *Learner) handleSnooze(ctx context.Context, req OutcomeRequest, tc models.TimeContext, now time.Time) (*OutcomeResult, error) {
	if err := l.appendAndPublish(ctx, req, models.EventSnooze, now); err != nil {
		return nil, err
	}

	// Applied as two nudges, netting +0.1.
	deltas := map[string]float64{"recency": -0.2 + 0.3}
	cooldownDays := SnoozeCooldownDays(tc)

	if _, err := l.storage.UpdateWeights(ctx, req.UserID, applyDeltas(deltas)); err != nil {
		return nil, err
	}
	until := now.AddDate(0, 0, cooldownDays)
	if err := l.storage.SetCooldown(ctx, req.UserID, req.RecommendationID, until); err != nil {
		return nil, err
	}

	return &OutcomeResult{
		Outcome:      OutcomeSnooze,
		CooldownDays: cooldownDays,
		WeightDeltas: deltas,
	}, nil
}

// handleIntended records the "do it now" micro-commitment: a strong
// positive signal with no cooldown.
func (l *Learner) handleIntended(ctx context.Context, req OutcomeRequest, now time.Time) (*OutcomeResult, error) {
	if err := l.appendAndPublish(ctx, req, models.EventIntended, now); err != nil {
		return nil, err
	}

	deltas := map[string]float64{"fit": 0.4 + 0.2, "recency": 0.3}
	if _, err := l.storage.UpdateWeights(ctx, req.UserID, applyDeltas(deltas)); err != nil {
		return nil, err
	}

	return &OutcomeResult{
		Outcome:      OutcomeIntended,
		Acknowledged: true,
		WeightDeltas: deltas,
	}, nil
}

func (l *Learner) appendAndPublish(ctx context.Context, req OutcomeRequest, et models.EventType, now time.Time) error {
	event := models.FeedbackEvent{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		RecommendationID: req.RecommendationID,
		EventType:        et,
		OccurredAt:       now,
		Reason:           req.DismissReason,
		TimeContext:      req.TimeContext,
	}
	if err := l.storage.Append(ctx, event); err != nil {
		return fmt.Errorf("append %s event: %w", et, err)
	}
	if l.publisher != nil {
		if err := l.publisher.PublishFeedback(event); err != nil {
			l.logger.Warn().Err(err).Str("event_type", string(et)).Msg("failed to publish feedback event")
		}
	}
	return nil
}

// advanceStreak computes the streak value a completion occurring now would
// produce: increments on consecutive days, resets to 1 on a gap, holds
// steady on a same-day repeat.
func advanceStreak(streak *models.StreakState, now time.Time) int {
	if streak.LastDoneAt.IsZero() {
		return 1
	}
	lastDay := streak.LastDoneAt.UTC().Truncate(24 * time.Hour)
	today := now.UTC().Truncate(24 * time.Hour)
	switch today.Sub(lastDay) {
	case 0:
		if streak.Current < 1 {
			return 1
		}
		return streak.Current
	case 24 * time.Hour:
		return streak.Current + 1
	default:
		return 1
	}
}

// SnoozeCooldownDays maps a time context to the snooze suppression window.
func SnoozeCooldownDays(tc models.TimeContext) int {
	switch tc {
	case models.TimeContextWeekend:
		return 3
	case models.TimeContextEvening:
		return 1
	default:
		return 2
	}
}

func dismissDeltas(reason models.DismissReason) map[string]float64 {
	switch reason {
	case models.DismissNotRelevant:
		return map[string]float64{"fit": -0.4}
	case models.DismissTooHard:
		return map[string]float64{"effort": 0.3}
	case models.DismissAlreadyDoing:
		return map[string]float64{"novelty": 0.2, "fit": 0.1}
	default:
		return map[string]float64{"fit": -0.03, "novelty": -0.02, "recency": 0.05}
	}
}

func dismissCooldownDays(reason models.DismissReason) int {
	switch reason {
	case models.DismissNotRelevant:
		return 60
	case models.DismissTooHard:
		return 30
	case models.DismissAlreadyDoing:
		return 90
	default:
		return 0
	}
}

func applyDeltas(deltas map[string]float64) func(w *models.WeightPreferences) {
	return func(w *models.WeightPreferences) {
		for name, delta := range deltas {
			if f := w.Field(name); f != nil {
				*f += delta
			}
		}
	}
}

// bonusAmount converts a uniform roll into a small reward in rupees.
func bonusAmount(roll float64) float64 {
	steps := int(roll * 9) // 0..8
	return float64(5 * (steps + 1))
}

func doneResult(rec *store.DoneRecord, duplicate bool) *OutcomeResult {
	result := &OutcomeResult{
		Outcome: OutcomeDone,
		VerifiedImpact: &Impact{
			PKRPerMonth:    rec.PKR,
			KgCO2ePerMonth: rec.KgCO2e,
		},
		Streak:    rec.Streak,
		Duplicate: duplicate,
	}
	if rec.BonusPKR > 0 {
		result.Bonus = &Bonus{PKR: rec.BonusPKR}
	}
	return result
}
