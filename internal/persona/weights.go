// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package persona

import "github.com/nudgeworks/verdant/internal/models"

// Context carries request-time flags that nudge derived weights.
type Context struct {
	SprintWeek bool
	MonthEnd   bool
}

// deltaTable maps each persona dimension to the weight adjustments it
// drives, scaled by the dimension's value at derivation time. Keys are
// persona dimension names so the persona term is live; weight names match
// the WeightPreferences JSON tags.
var deltaTable = map[string]map[string]float64{
	models.DimMoney:     {"pkr": 0.6},
	models.DimTime:      {"time": 0.6},
	models.DimComfort:   {"effort": 0.5},
	models.DimHealth:    {"co2": 0.2, "effort": -0.3},
	models.DimCarbon:    {"co2": 0.6},
	models.DimMastery:   {"novelty": 0.4, "diversity": 0.2},
	models.DimSocial:    {"fit": 0.3, "novelty": 0.2},
	models.DimCertainty: {"fit": 0.4, "novelty": -0.2},
	models.DimStreak:    {"recency": 0.3, "fit": 0.2},
}

// DeriveWeights turns a persona vector and request context into scoring
// weights. Starts from the fixed base, applies persona-scaled deltas, then
// context adjustments. Output is intentionally not normalized or clamped;
// bounding only happens on adaptive feedback updates.
func DeriveWeights(vec models.PersonaVector, ctx Context) models.WeightPreferences {
	w := models.BaseWeights()
	for dim, deltas := range deltaTable {
		val := vec[dim]
		if val == 0 {
			continue
		}
		for name, delta := range deltas {
			if f := w.Field(name); f != nil {
				*f += val * delta
			}
		}
	}
	ApplyContext(&w, ctx)
	return w
}

// ApplyContext adds the request-time context adjustments. Exposed
// separately so stored adapted weights receive the same nudges at
// ranking time.
func ApplyContext(w *models.WeightPreferences, ctx Context) {
	if ctx.SprintWeek {
		w.Time += 0.4
	}
	if ctx.MonthEnd {
		w.PKR += 0.2
	}
}
