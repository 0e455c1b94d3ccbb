// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

// Package recommend implements the ranking engine: persona-parametrized
// feature scoring, filter relaxation, and diverse top-k selection.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nudgeworks/verdant/internal/cache"
	"github.com/nudgeworks/verdant/internal/metrics"
	"github.com/nudgeworks/verdant/internal/models"
	"github.com/nudgeworks/verdant/internal/persona"
)

// Engine orchestrates one ranking call end to end. Safe for concurrent use;
// requests for different users share no mutable state beyond the weight
// cache, which is internally synchronized.
type Engine struct {
	cfg       Config
	logger    zerolog.Logger
	catalog   CatalogProvider
	history   EventHistory
	profiles  ProfileStore
	cooldowns CooldownStore
	reranker  Reranker
	publisher EventPublisher

	weightCache *cache.WeightsLRU

	totalRequests atomic.Uint64
	emptyResults  atomic.Uint64
}

// NewEngine wires a ranking engine. cooldowns and publisher may be nil;
// the engine then skips cooldown suppression and bus publication.
func NewEngine(cfg Config, logger zerolog.Logger, catalog CatalogProvider, history EventHistory, profiles ProfileStore, cooldowns CooldownStore, reranker Reranker, publisher EventPublisher) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil || history == nil || profiles == nil || reranker == nil {
		return nil, fmt.Errorf("engine: catalog, history, profiles and reranker are required")
	}
	return &Engine{
		cfg:         cfg,
		logger:      logger.With().Str("component", "engine").Logger(),
		catalog:     catalog,
		history:     history,
		profiles:    profiles,
		cooldowns:   cooldowns,
		reranker:    reranker,
		publisher:   publisher,
		weightCache: cache.NewWeightsLRU(cfg.WeightCacheSize, cfg.WeightCacheTTL),
	}, nil
}

// InvalidateWeights drops a user's cached derived weights. The learner
// calls this after persisting an adaptive update.
func (e *Engine) InvalidateWeights(userID string) {
	e.weightCache.Invalidate(userID)
}

// CleanupWeightCache evicts expired cache entries and reports how many
// were dropped. Called periodically by the maintenance service.
func (e *Engine) CleanupWeightCache() int {
	return e.weightCache.CleanupExpired()
}

// Rank produces the next best actions for a user. Primary is nil only when
// the catalog holds no candidates at all.
func (e *Engine) Rank(ctx context.Context, req RankRequest) (*RankResponse, error) {
	start := time.Now()
	e.totalRequests.Add(1)

	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	k := req.K
	if k <= 0 {
		k = e.cfg.TopK
	}

	profile, err := e.profiles.GetProfile(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	weights, err := e.resolveWeights(ctx, profile, req)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}

	items, err := e.catalog.ListCandidates(ctx, models.FilterCriteria{
		Locale:     profile.Locale,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("rank: list candidates: %w", err)
	}
	if len(items) == 0 {
		e.emptyResults.Add(1)
		metrics.RecordRank(time.Since(start), 0, 0, true)
		return e.emptyResponse(now), nil
	}

	hist, err := e.loadHistory(ctx, req.UserID, items, now)
	if err != nil {
		return nil, fmt.Errorf("rank: load history: %w", err)
	}

	pool, stage := applyLadder(items, profile, hist)
	if len(pool) == 0 {
		// Only reachable with an empty catalog, which is handled above;
		// kept as a belt for provider races.
		e.emptyResults.Add(1)
		metrics.RecordRank(time.Since(start), len(items), stage, true)
		return e.emptyResponse(now), nil
	}

	scored := e.scorePool(pool, profile, weights, hist, now)
	selected := e.reranker.Rerank(ctx, scored, k)
	if len(selected) == 0 {
		// The reranker may stop early on uniformly negative scores; a
		// non-empty pool must still surface a primary.
		selected = scored[:1]
	}

	resp := e.buildResponse(selected, weights, now)
	e.emitShown(ctx, req.UserID, selected, now)

	metrics.RecordRank(time.Since(start), len(pool), stage, false)
	e.logger.Debug().
		Str("user_id", req.UserID).
		Int("catalog", len(items)).
		Int("pool", len(pool)).
		Int("ladder_stage", stage).
		Int("selected", len(selected)).
		Dur("duration", time.Since(start)).
		Msg("ranking complete")

	return resp, nil
}

// resolveWeights picks the scoring weights for this request: adapted state
// first, then cached persona-derived weights, then fresh derivation.
// Context nudges apply on top of whichever base wins.
func (e *Engine) resolveWeights(ctx context.Context, profile *models.UserProfile, req RankRequest) (models.WeightPreferences, error) {
	pctx := persona.Context{SprintWeek: req.SprintWeek, MonthEnd: req.MonthEnd}

	state, err := e.profiles.GetWeightState(ctx, profile.UserID)
	if err != nil {
		return models.WeightPreferences{}, fmt.Errorf("weight state: %w", err)
	}
	if state != nil {
		w := state.Weights
		persona.ApplyContext(&w, pctx)
		return w, nil
	}

	if w, ok := e.weightCache.Get(profile.UserID); ok {
		metrics.WeightCacheHits.Inc()
		persona.ApplyContext(&w, pctx)
		return w, nil
	}
	metrics.WeightCacheMisses.Inc()

	vec := persona.MapArchetypes(profile.ArchetypeScores)
	derived := persona.DeriveWeights(vec, persona.Context{})
	e.weightCache.Add(profile.UserID, derived)
	persona.ApplyContext(&derived, pctx)
	return derived, nil
}

// loadHistory assembles the per-request feedback snapshot.
func (e *Engine) loadHistory(ctx context.Context, userID string, items []models.CandidateItem, now time.Time) (*userHistory, error) {
	limit := e.cfg.HistoryLimit

	shown, err := e.history.RecentEvents(ctx, userID, models.EventShown, limit)
	if err != nil {
		return nil, err
	}
	done, err := e.history.RecentEvents(ctx, userID, models.EventDone, limit)
	if err != nil {
		return nil, err
	}
	dismissed, err := e.history.RecentEvents(ctx, userID, models.EventDismiss, limit)
	if err != nil {
		return nil, err
	}
	snoozed, err := e.history.RecentEvents(ctx, userID, models.EventSnooze, limit)
	if err != nil {
		return nil, err
	}

	categoryByID := make(map[string]string, len(items))
	for i := range items {
		categoryByID[items[i].ID] = items[i].Category
	}

	hist := &userHistory{
		shown:          shown,
		lastSeen:       make(map[string]time.Time),
		categoryCounts: make(map[string]int),
		dismissed30:    make(map[string]struct{}),
		snoozed7:       make(map[string]struct{}),
		doneToday:      make(map[string]struct{}),
		cooldowns:      make(map[string]struct{}),
	}

	for i, ref := range shown {
		if ref.OccurredAt.After(hist.lastSeen[ref.ActionID]) {
			hist.lastSeen[ref.ActionID] = ref.OccurredAt
		}
		if i < 20 {
			if cat, ok := categoryByID[ref.ActionID]; ok {
				hist.categoryCounts[cat]++
			}
		}
	}

	today := now.Truncate(24 * time.Hour)
	for _, ref := range done {
		if ref.OccurredAt.After(hist.lastSeen[ref.ActionID]) {
			hist.lastSeen[ref.ActionID] = ref.OccurredAt
		}
		if !ref.OccurredAt.Truncate(24 * time.Hour).Before(today) {
			hist.doneToday[ref.ActionID] = struct{}{}
		}
	}

	dismissCutoff := now.AddDate(0, 0, -e.cfg.DismissWindowDays)
	for _, ref := range dismissed {
		if ref.OccurredAt.After(dismissCutoff) {
			hist.dismissed30[ref.ActionID] = struct{}{}
		}
	}

	snoozeCutoff := now.AddDate(0, 0, -e.cfg.SnoozeWindowDays)
	for _, ref := range snoozed {
		if ref.OccurredAt.After(snoozeCutoff) {
			hist.snoozed7[ref.ActionID] = struct{}{}
		}
	}

	// Reasoned dismissals and snoozes can carry cooldowns longer than the
	// default windows. Cooldowns only filter; the score penalty stays
	// reserved for actual dismissals in the window.
	if e.cooldowns != nil {
		active, err := e.cooldowns.ActiveCooldowns(ctx, userID, now)
		if err != nil {
			return nil, err
		}
		hist.cooldowns = active
	}

	return hist, nil
}

// scorePool computes component and final scores for every pool item and
// sorts descending by score, breaking ties by id for determinism.
//
//nolint:gocritic // hugeParam: weights copied per call, acceptable for purity
func (e *Engine) scorePool(pool []models.CandidateItem, profile *models.UserProfile, weights models.WeightPreferences, hist *userHistory, now time.Time) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(pool))
	for i := range pool {
		item := pool[i]
		comps := ComponentScores{
			Utility:   UtilityScore(item.Metrics, weights),
			Effort:    EffortPenalty(item.Effort),
			Fit:       FitScore(&item, profile),
			Novelty:   NoveltyScore(item.ID, hist.shown, now),
			Recency:   RecencyScore(hist.lastSeen[item.ID], now),
			Diversity: DiversityScore(item.Category, hist.categoryCounts),
		}
		score := FinalScore(comps, weights)
		if _, dismissed := hist.dismissed30[item.ID]; dismissed {
			score *= dismissPenalty
		}
		scored = append(scored, ScoredCandidate{Item: item, Components: comps, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Item.ID < scored[j].Item.ID
	})
	return scored
}

// buildResponse converts the reranked selection into the API shape.
//
//nolint:gocritic // hugeParam: weights copied per call, acceptable for purity
func (e *Engine) buildResponse(selected []ScoredCandidate, weights models.WeightPreferences, now time.Time) *RankResponse {
	resp := &RankResponse{
		Alternatives: []RankedItem{},
		GeneratedAt:  now,
	}
	for i := range selected {
		ranked := RankedItem{
			ID:          selected[i].Item.ID,
			Title:       selected[i].Item.Title,
			Category:    selected[i].Item.Category,
			Explanation: explain(&selected[i], weights),
			Impact: ImpactPreview{
				PKRPerMonth:    selected[i].Item.Metrics.PKRPerMonth,
				KgCO2ePerMonth: selected[i].Item.Metrics.KgCO2ePerMonth,
			},
			Score: selected[i].Score,
		}
		if i == 0 {
			resp.Primary = &ranked
		} else {
			resp.Alternatives = append(resp.Alternatives, ranked)
		}
	}
	return resp
}

// emitShown appends and publishes one SHOWN event per surfaced item.
// Ledger failures are logged, not surfaced; the user already has their
// recommendations.
func (e *Engine) emitShown(ctx context.Context, userID string, selected []ScoredCandidate, now time.Time) {
	for i := range selected {
		event := models.FeedbackEvent{
			ID:               uuid.NewString(),
			UserID:           userID,
			RecommendationID: selected[i].Item.ID,
			EventType:        models.EventShown,
			OccurredAt:       now,
		}
		if err := e.history.Append(ctx, event); err != nil {
			e.logger.Warn().Err(err).
				Str("user_id", userID).
				Str("action_id", event.RecommendationID).
				Msg("failed to record shown event")
			continue
		}
		if e.publisher != nil {
			if err := e.publisher.PublishFeedback(event); err != nil {
				e.logger.Warn().Err(err).Str("action_id", event.RecommendationID).Msg("failed to publish shown event")
			}
		}
	}
}

func (e *Engine) emptyResponse(now time.Time) *RankResponse {
	return &RankResponse{
		Primary:      nil,
		Alternatives: []RankedItem{},
		GeneratedAt:  now,
	}
}

// Stats returns engine counters for health reporting.
func (e *Engine) Stats() (total, empty uint64) {
	return e.totalRequests.Load(), e.emptyResults.Load()
}

// explain produces the "why shown" string from the dominant weighted
// component contributions.
//
//nolint:gocritic // hugeParam: weights copied per call, acceptable for purity
func explain(sc *ScoredCandidate, w models.WeightPreferences) string {
	type contribution struct {
		label string
		value float64
	}
	utilityWeight := (w.PKR + w.Time + w.CO2) / 3
	contribs := []contribution{
		{"high impact for you", utilityWeight * sc.Components.Utility},
		{"matches your interests", w.Fit * sc.Components.Fit},
		{"something new to try", w.Novelty * sc.Components.Novelty},
		{"a good time to revisit it", w.Recency * sc.Components.Recency},
		{"adds variety to your routine", w.Diversity * sc.Components.Diversity},
	}
	sort.SliceStable(contribs, func(i, j int) bool { return contribs[i].value > contribs[j].value })

	parts := []string{contribs[0].label}
	if contribs[1].value > 0.5*contribs[0].value && contribs[1].value > 0 {
		parts = append(parts, contribs[1].label)
	}
	reason := strings.Join(parts, " and ")
	if sc.Components.Effort < 0.3 {
		reason += ", with little effort needed"
	}
	return "Recommended because it is " + reason + "."
}
