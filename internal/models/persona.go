// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package models

// Persona dimension names, in canonical order.
const (
	DimMoney     = "money"
	DimTime      = "time"
	DimComfort   = "comfort"
	DimHealth    = "health"
	DimCarbon    = "carbon"
	DimMastery   = "mastery"
	DimSocial    = "social"
	DimCertainty = "certainty"
	DimStreak    = "streak"
)

// PersonaDimensions lists all nine dimensions in canonical order.
var PersonaDimensions = []string{
	DimMoney, DimTime, DimComfort, DimHealth, DimCarbon,
	DimMastery, DimSocial, DimCertainty, DimStreak,
}

// ArchetypeScoreMap maps archetype name to a non-negative score. Produced
// by the external personality classifier; scores need not sum to 1.
type ArchetypeScoreMap map[string]float64

// PersonaVector is a user's normalized motivational profile. Dimensions sum
// to 1 when at least one archetype in the source map was recognized, and to
// 0 when none were.
type PersonaVector map[string]float64

// Sum returns the total mass across all dimensions.
func (p PersonaVector) Sum() float64 {
	var s float64
	for _, v := range p {
		s += v
	}
	return s
}

// UserProfile is the per-user context the ranking path consumes.
type UserProfile struct {
	UserID           string            `json:"user_id"`
	Locale           string            `json:"locale,omitempty"`
	PreferredTags    []string          `json:"preferred_tags,omitempty"`
	PreferredChannel string            `json:"preferred_channel,omitempty"`
	ArchetypeScores  ArchetypeScoreMap `json:"archetype_scores,omitempty"`
}
