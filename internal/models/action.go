// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package models

import "time"

// ImpactMetrics holds the estimated monthly impact of completing an action.
type ImpactMetrics struct {
	PKRPerMonth     float64 `json:"pkr_per_month"`
	MinutesPerMonth float64 `json:"minutes_per_month"`
	KgCO2ePerMonth  float64 `json:"kgco2e_per_month"`
}

// EffortProfile describes how much work an action demands of the user.
type EffortProfile struct {
	Steps            int     `json:"steps"`
	AvgMinutesToDo   float64 `json:"avg_minutes_to_do"`
	RequiresPurchase bool    `json:"requires_purchase"`
}

// CandidateItem is one catalog action eligible for recommendation.
// Immutable for the duration of a ranking call; owned by the catalog.
type CandidateItem struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Category string        `json:"category"`
	Tags     []string      `json:"tags,omitempty"`
	Regions  []string      `json:"regions,omitempty"`
	Channel  string        `json:"channel,omitempty"`
	Metrics  ImpactMetrics `json:"metrics"`
	Effort   EffortProfile `json:"effort"`
	Active   bool          `json:"active"`
	AddedAt  time.Time     `json:"added_at,omitempty"`
}

// HasRegion reports whether the item is available in the given locale.
// An item declaring no regions is available everywhere.
func (c *CandidateItem) HasRegion(locale string) bool {
	if len(c.Regions) == 0 {
		return true
	}
	for _, r := range c.Regions {
		if r == locale {
			return true
		}
	}
	return false
}

// TopUtilityDimension returns which of the three impact axes dominates
// the item's normalized metrics: "pkr", "time", or "co2".
func (c *CandidateItem) TopUtilityDimension() string {
	pkr := c.Metrics.PKRPerMonth / 2000
	tm := c.Metrics.MinutesPerMonth / 120
	co2 := c.Metrics.KgCO2ePerMonth / 20
	switch {
	case pkr >= tm && pkr >= co2:
		return "pkr"
	case tm >= co2:
		return "time"
	default:
		return "co2"
	}
}

// FilterCriteria narrows the catalog listing for a ranking call.
type FilterCriteria struct {
	Locale     string
	Categories []string
	ActiveOnly bool
}
