// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

// Package persona maps archetype classifier output onto a normalized
// motivational profile and derives per-user scoring weights from it.
package persona

import "github.com/nudgeworks/verdant/internal/models"

// bridgeRow is one archetype's fixed distribution over the nine persona
// dimensions. Every row sums to 1.
type bridgeRow map[string]float64

// bridgeMatrix is the fixed archetype-to-persona translation table.
// Loaded once at init; treated as immutable.
var bridgeMatrix = map[string]bridgeRow{
	"MoneyMax": {
		models.DimMoney: 0.45, models.DimTime: 0.10, models.DimComfort: 0.05,
		models.DimHealth: 0.02, models.DimCarbon: 0.05, models.DimMastery: 0.08,
		models.DimSocial: 0.05, models.DimCertainty: 0.15, models.DimStreak: 0.05,
	},
	"TimeSaver": {
		models.DimMoney: 0.10, models.DimTime: 0.45, models.DimComfort: 0.15,
		models.DimHealth: 0.03, models.DimCarbon: 0.02, models.DimMastery: 0.05,
		models.DimSocial: 0.05, models.DimCertainty: 0.10, models.DimStreak: 0.05,
	},
	"EcoGuardian": {
		models.DimMoney: 0.05, models.DimTime: 0.05, models.DimComfort: 0.05,
		models.DimHealth: 0.10, models.DimCarbon: 0.45, models.DimMastery: 0.10,
		models.DimSocial: 0.10, models.DimCertainty: 0.05, models.DimStreak: 0.05,
	},
	"SocialSharer": {
		models.DimMoney: 0.05, models.DimTime: 0.05, models.DimComfort: 0.05,
		models.DimHealth: 0.05, models.DimCarbon: 0.10, models.DimMastery: 0.05,
		models.DimSocial: 0.45, models.DimCertainty: 0.05, models.DimStreak: 0.15,
	},
	"HealthSeeker": {
		models.DimMoney: 0.05, models.DimTime: 0.10, models.DimComfort: 0.10,
		models.DimHealth: 0.45, models.DimCarbon: 0.10, models.DimMastery: 0.05,
		models.DimSocial: 0.05, models.DimCertainty: 0.05, models.DimStreak: 0.05,
	},
	"ComfortFirst": {
		models.DimMoney: 0.10, models.DimTime: 0.15, models.DimComfort: 0.45,
		models.DimHealth: 0.05, models.DimCarbon: 0.02, models.DimMastery: 0.03,
		models.DimSocial: 0.05, models.DimCertainty: 0.10, models.DimStreak: 0.05,
	},
	"SkillBuilder": {
		models.DimMoney: 0.05, models.DimTime: 0.05, models.DimComfort: 0.05,
		models.DimHealth: 0.05, models.DimCarbon: 0.05, models.DimMastery: 0.45,
		models.DimSocial: 0.05, models.DimCertainty: 0.10, models.DimStreak: 0.15,
	},
	"SteadyPlanner": {
		models.DimMoney: 0.10, models.DimTime: 0.10, models.DimComfort: 0.05,
		models.DimHealth: 0.05, models.DimCarbon: 0.05, models.DimMastery: 0.05,
		models.DimSocial: 0.05, models.DimCertainty: 0.40, models.DimStreak: 0.15,
	},
}

// KnownArchetypes returns the archetype names the bridge matrix recognizes.
func KnownArchetypes() []string {
	names := make([]string, 0, len(bridgeMatrix))
	for name := range bridgeMatrix {
		names = append(names, name)
	}
	return names
}

// MapArchetypes converts classifier archetype scores into a normalized
// persona vector. Unknown archetype names are silently ignored. If no
// archetype is recognized the result is the zero vector: every dimension
// present with value 0.
func MapArchetypes(scores models.ArchetypeScoreMap) models.PersonaVector {
	vec := make(models.PersonaVector, len(models.PersonaDimensions))
	for _, dim := range models.PersonaDimensions {
		vec[dim] = 0
	}
	for name, score := range scores {
		row, ok := bridgeMatrix[name]
		if !ok {
			continue
		}
		for dim, coeff := range row {
			vec[dim] += score * coeff
		}
	}
	total := vec.Sum()
	if total < 1e-6 {
		total = 1e-6
	}
	for dim := range vec {
		vec[dim] /= total
	}
	return vec
}
