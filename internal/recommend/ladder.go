// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package recommend

import "github.com/nudgeworks/verdant/internal/models"

// ladderStage is one pure filtering step over the full candidate list.
type ladderStage func(items []models.CandidateItem, profile *models.UserProfile, hist *userHistory) []models.CandidateItem

// filterLadder is the ordered relaxation ladder. Each stage recomputes its
// pool from the full catalog list; the first non-empty pool wins. The last
// stage passes everything through, so the ladder only comes up empty when
// the catalog itself is empty.
var filterLadder = []ladderStage{
	stageFitAndCooldowns,
	stageAllCooldowns,
	stageRelaxSnooze,
	stageDoneTodayOnly,
	stageUnfiltered,
}

// applyLadder runs the relaxation ladder and reports which stage produced
// the pool (1-based, for metrics).
func applyLadder(items []models.CandidateItem, profile *models.UserProfile, hist *userHistory) ([]models.CandidateItem, int) {
	for i, stage := range filterLadder {
		if pool := stage(items, profile, hist); len(pool) > 0 {
			return pool, i + 1
		}
	}
	return nil, len(filterLadder)
}

// stageFitAndCooldowns keeps only candidates with a positive fit score,
// then applies every cooldown exclusion.
func stageFitAndCooldowns(items []models.CandidateItem, profile *models.UserProfile, hist *userHistory) []models.CandidateItem {
	fitted := items[:0:0]
	for i := range items {
		if FitScore(&items[i], profile) > 0 {
			fitted = append(fitted, items[i])
		}
	}
	return stageAllCooldowns(fitted, profile, hist)
}

// stageAllCooldowns drops items completed today, dismissed in the last 30
// days, snoozed in the last 7 days, or under an active cooldown.
func stageAllCooldowns(items []models.CandidateItem, _ *models.UserProfile, hist *userHistory) []models.CandidateItem {
	return exclude(items, hist.doneToday, hist.dismissed30, hist.snoozed7, hist.cooldowns)
}

// stageRelaxSnooze keeps the dismissed, cooldown, and done-today
// exclusions but lets snoozed items back in.
func stageRelaxSnooze(items []models.CandidateItem, _ *models.UserProfile, hist *userHistory) []models.CandidateItem {
	return exclude(items, hist.doneToday, hist.dismissed30, hist.cooldowns)
}

// stageDoneTodayOnly drops only items already completed today.
func stageDoneTodayOnly(items []models.CandidateItem, _ *models.UserProfile, hist *userHistory) []models.CandidateItem {
	return exclude(items, hist.doneToday)
}

// stageUnfiltered passes the catalog through untouched.
func stageUnfiltered(items []models.CandidateItem, _ *models.UserProfile, _ *userHistory) []models.CandidateItem {
	return items
}

func exclude(items []models.CandidateItem, sets ...map[string]struct{}) []models.CandidateItem {
	kept := items[:0:0]
outer:
	for i := range items {
		for _, set := range sets {
			if _, ok := set[items[i].ID]; ok {
				continue outer
			}
		}
		kept = append(kept, items[i])
	}
	return kept
}
