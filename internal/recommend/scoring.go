// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package recommend

import (
	"math"
	"time"

	"github.com/nudgeworks/verdant/internal/models"
)

// Normalization caps for the utility blend. A metric at or above its cap
// contributes a full 1.0 on that axis.
const (
	capPKRPerMonth     = 2000.0
	capMinutesPerMonth = 120.0
	capKgCO2ePerMonth  = 20.0
)

// ComponentScores holds the six normalized feature scores for one candidate.
type ComponentScores struct {
	Utility   float64 `json:"utility"`
	Effort    float64 `json:"effort"`
	Fit       float64 `json:"fit"`
	Novelty   float64 `json:"novelty"`
	Recency   float64 `json:"recency"`
	Diversity float64 `json:"diversity"`
}

// UtilityScore blends the three capped impact metrics, weighted by the
// user's pkr/time/co2 preferences. Always in [0,1]; metrics at every cap
// score exactly 1 regardless of the weight values.
func UtilityScore(m models.ImpactMetrics, w models.WeightPreferences) float64 {
	pkr := math.Min(1, m.PKRPerMonth/capPKRPerMonth)
	tm := math.Min(1, m.MinutesPerMonth/capMinutesPerMonth)
	co2 := math.Min(1, m.KgCO2ePerMonth/capKgCO2ePerMonth)
	denom := w.PKR + w.Time + w.CO2
	if denom <= 0 {
		return 0
	}
	return (w.PKR*pkr + w.Time*tm + w.CO2*co2) / denom
}

// EffortPenalty scores how demanding an action is. Higher means more
// effortful; the final score subtracts it.
func EffortPenalty(e models.EffortProfile) float64 {
	steps := math.Min(1, float64(e.Steps)/6)
	minutes := math.Min(1, e.AvgMinutesToDo/60)
	purchase := 0.0
	if e.RequiresPurchase {
		purchase = 0.1
	}
	return 0.85 * (0.6*steps + 0.3*minutes + purchase)
}

// FitScore measures how well a candidate matches the user's declared
// preferences. A region mismatch hard-gates to 0. Otherwise tag overlap is
// normalized by max(3, tagCount), with a flat channel bonus, clamped to [0,1].
func FitScore(item *models.CandidateItem, profile *models.UserProfile) float64 {
	if !item.HasRegion(profile.Locale) {
		return 0
	}
	overlap := 0
	tagSet := make(map[string]struct{}, len(item.Tags))
	for _, t := range item.Tags {
		tagSet[t] = struct{}{}
	}
	for _, t := range profile.PreferredTags {
		if _, ok := tagSet[t]; ok {
			overlap++
		}
	}
	denom := float64(len(item.Tags))
	if denom < 3 {
		denom = 3
	}
	fit := math.Min(1, float64(overlap)/denom)
	if profile.PreferredChannel != "" && profile.PreferredChannel == item.Channel {
		fit += 0.1
	}
	return clamp01(fit)
}

// NoveltyScore penalizes over-exposed candidates. shown is newest-first
// exposure history; only the most recent 30 events count toward frequency,
// and any exposure inside the last 7 days costs an extra 0.15.
func NoveltyScore(actionID string, shown []models.EventRef, now time.Time) float64 {
	if len(shown) > 30 {
		shown = shown[:30]
	}
	if len(shown) == 0 {
		return 1
	}
	count := 0
	recent := false
	weekAgo := now.AddDate(0, 0, -7)
	for _, ref := range shown {
		if ref.ActionID != actionID {
			continue
		}
		count++
		if ref.OccurredAt.After(weekAgo) {
			recent = true
		}
	}
	score := 1 - float64(count)/float64(len(shown))
	if recent {
		score -= 0.15
	}
	return clamp01(score)
}

// RecencyScore approaches 1 exponentially as time passes since the
// candidate was last shown or completed. A zero lastSeen means never: no
// penalty.
func RecencyScore(lastSeen, now time.Time) float64 {
	if lastSeen.IsZero() {
		return 1
	}
	days := now.Sub(lastSeen).Hours() / 24
	if days < 0 {
		days = 0
	}
	return 1 - math.Exp(-days/7)
}

// DiversityScore rewards under-shown categories. categoryCounts is the
// category histogram of the last 20 shown events; an absent category scores
// 1, the most over-shown category scores 0.
func DiversityScore(category string, categoryCounts map[string]int) float64 {
	maxCount := 0
	for _, n := range categoryCounts {
		if n > maxCount {
			maxCount = n
		}
	}
	if maxCount < 1 {
		maxCount = 1
	}
	return 1 - float64(categoryCounts[category])/float64(maxCount)
}

// FinalScore combines the six components under the user's weights. The
// utility term uses the mean of the three impact weights; effort subtracts.
func FinalScore(c ComponentScores, w models.WeightPreferences) float64 {
	utilityWeight := (w.PKR + w.Time + w.CO2) / 3
	return utilityWeight*c.Utility -
		w.Effort*c.Effort +
		w.Fit*c.Fit +
		w.Novelty*c.Novelty +
		w.Recency*c.Recency +
		w.Diversity*c.Diversity
}

// dismissPenalty scales a score down when the candidate was dismissed in
// the last 30 days.
const dismissPenalty = 0.7

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
