// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package models

import "time"

// Adaptive weight bounds. Every weight ends every update inside this range.
const (
	WeightFloor = 0.5
	WeightCeil  = 2.0
)

// WeightPreferences parametrizes the feature scorer for one user.
// Values are unnormalized multipliers, not probabilities.
type WeightPreferences struct {
	PKR       float64 `json:"pkr"`
	Time      float64 `json:"time"`
	CO2       float64 `json:"co2"`
	Effort    float64 `json:"effort"`
	Novelty   float64 `json:"novelty"`
	Recency   float64 `json:"recency"`
	Diversity float64 `json:"diversity"`
	Fit       float64 `json:"fit"`
}

// BaseWeights returns the fixed starting point every user derives from.
func BaseWeights() WeightPreferences {
	return WeightPreferences{
		PKR:       1.0,
		Time:      1.0,
		CO2:       1.0,
		Effort:    1.0,
		Novelty:   0.7,
		Recency:   0.8,
		Diversity: 0.6,
		Fit:       1.0,
	}
}

// Clamp bounds every weight to [WeightFloor, WeightCeil] in place.
func (w *WeightPreferences) Clamp() {
	for _, p := range []*float64{&w.PKR, &w.Time, &w.CO2, &w.Effort, &w.Novelty, &w.Recency, &w.Diversity, &w.Fit} {
		if *p < WeightFloor {
			*p = WeightFloor
		}
		if *p > WeightCeil {
			*p = WeightCeil
		}
	}
}

// Field returns a pointer to the named weight, or nil for an unknown name.
// Names match the JSON tags.
func (w *WeightPreferences) Field(name string) *float64 {
	switch name {
	case "pkr":
		return &w.PKR
	case "time":
		return &w.Time
	case "co2":
		return &w.CO2
	case "effort":
		return &w.Effort
	case "novelty":
		return &w.Novelty
	case "recency":
		return &w.Recency
	case "diversity":
		return &w.Diversity
	case "fit":
		return &w.Fit
	}
	return nil
}

// WeightState is the persisted, versioned weight record for one user.
// Version increments on every successful write; conditional writes compare it.
type WeightState struct {
	UserID    string            `json:"user_id"`
	Weights   WeightPreferences `json:"weights"`
	Version   uint64            `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// StreakState tracks consecutive-day completion for one user.
type StreakState struct {
	UserID     string    `json:"user_id"`
	Current    int       `json:"current"`
	Longest    int       `json:"longest"`
	LastDoneAt time.Time `json:"last_done_at"`
}
