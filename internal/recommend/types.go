// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package recommend

import (
	"context"
	"time"

	"github.com/nudgeworks/verdant/internal/models"
)

// CatalogProvider supplies candidate actions. Implementations own item
// lifecycle; items are immutable for the duration of a ranking call.
type CatalogProvider interface {
	ListCandidates(ctx context.Context, criteria models.FilterCriteria) ([]models.CandidateItem, error)
	GetCandidate(ctx context.Context, id string) (*models.CandidateItem, error)
}

// EventHistory reads and appends the per-user feedback ledger.
type EventHistory interface {
	// RecentEvents returns up to limit refs of the given type, newest first.
	RecentEvents(ctx context.Context, userID string, et models.EventType, limit int) ([]models.EventRef, error)
	Append(ctx context.Context, event models.FeedbackEvent) error
}

// ProfileStore resolves user profiles and adapted weight state.
type ProfileStore interface {
	// GetProfile returns models.ErrUserNotFound for an unknown user.
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	// GetWeightState returns (nil, nil) when the user has no adapted state yet.
	GetWeightState(ctx context.Context, userID string) (*models.WeightState, error)
}

// CooldownStore reports per-(user, action) suppression windows set by
// outcome handling.
type CooldownStore interface {
	ActiveCooldowns(ctx context.Context, userID string, now time.Time) (map[string]struct{}, error)
}

// Reranker post-processes a scored, score-descending candidate list.
type Reranker interface {
	Rerank(ctx context.Context, items []ScoredCandidate, k int) []ScoredCandidate
	Name() string
}

// EventPublisher pushes accepted feedback events onto the in-process bus.
type EventPublisher interface {
	PublishFeedback(event models.FeedbackEvent) error
}

// ScoredCandidate pairs a catalog item with its component scores and final
// combined score for one ranking call. Never persisted.
type ScoredCandidate struct {
	Item       models.CandidateItem `json:"item"`
	Components ComponentScores      `json:"components"`
	Score      float64              `json:"score"`
}

// ImpactPreview is the user-facing estimate surfaced with a ranked item.
type ImpactPreview struct {
	PKRPerMonth    float64 `json:"pkr_per_month"`
	KgCO2ePerMonth float64 `json:"kgco2e_per_month"`
}

// RankedItem is one surfaced recommendation.
type RankedItem struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Category    string        `json:"category"`
	Explanation string        `json:"explanation"`
	Impact      ImpactPreview `json:"impact"`
	Score       float64       `json:"score"`
}

// RankRequest asks for the next best actions for one user.
type RankRequest struct {
	UserID     string    `json:"user_id"`
	K          int       `json:"k,omitempty"`
	SprintWeek bool      `json:"sprint_week,omitempty"`
	MonthEnd   bool      `json:"month_end,omitempty"`
	Now        time.Time `json:"-"`
}

// RankResponse is the ranked selection. Primary is nil only when the
// catalog itself is empty.
type RankResponse struct {
	Primary      *RankedItem  `json:"primary"`
	Alternatives []RankedItem `json:"alternatives"`
	GeneratedAt  time.Time    `json:"generated_at"`
}

// userHistory is the per-request snapshot of a user's recent feedback,
// assembled once so every component score reads consistent data.
type userHistory struct {
	shown          []models.EventRef // newest first
	lastSeen       map[string]time.Time
	categoryCounts map[string]int      // over the last 20 shown
	dismissed30    map[string]struct{} // dismissed in last 30 days
	snoozed7       map[string]struct{} // snoozed in last 7 days
	doneToday      map[string]struct{}
	cooldowns      map[string]struct{} // active reasoned-dismiss/snooze cooldowns
}
