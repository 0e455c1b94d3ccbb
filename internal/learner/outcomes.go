// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package learner

import (
	"fmt"
	"time"

	"github.com/nudgeworks/verdant/internal/models"
)

// OutcomeType is the user action being recorded.
type OutcomeType string

const (
	OutcomeDone     OutcomeType = "done"
	OutcomeDismiss  OutcomeType = "dismiss"
	OutcomeSnooze   OutcomeType = "snooze"
	OutcomeIntended OutcomeType = "intended"
)

// OutcomeRequest is one outcome submission.
type OutcomeRequest struct {
	UserID           string               `json:"user_id"`
	RecommendationID string               `json:"recommendation_id"`
	Outcome          OutcomeType          `json:"outcome"`
	DismissReason    models.DismissReason `json:"dismiss_reason,omitempty"`
	TimeContext      models.TimeContext   `json:"time_context,omitempty"`
	Now              time.Time            `json:"-"`
}

// outcomeVariant is the closed set of outcome kinds; dispatch is an
// exhaustive type switch, not string comparison at the handling site.
type outcomeVariant interface {
	isOutcome()
}

type doneOutcome struct{}

type dismissOutcome struct {
	reason models.DismissReason
}

type snoozeOutcome struct {
	timeContext models.TimeContext
}

type intendedOutcome struct{}

func (doneOutcome) isOutcome()     {}
func (dismissOutcome) isOutcome()  {}
func (snoozeOutcome) isOutcome()   {}
func (intendedOutcome) isOutcome() {}

// outcome parses the request into a typed variant. Anything outside the
// recognized set fails with models.ErrInvalidOutcome before persistence.
func (r *OutcomeRequest) outcome() (outcomeVariant, error) {
	if r.UserID == "" || r.RecommendationID == "" {
		return nil, fmt.Errorf("%w: missing user or recommendation id", models.ErrInvalidOutcome)
	}
	switch r.Outcome {
	case OutcomeDone:
		return doneOutcome{}, nil
	case OutcomeDismiss:
		if !r.DismissReason.Valid() {
			return nil, fmt.Errorf("%w: unknown dismiss reason %q", models.ErrInvalidOutcome, r.DismissReason)
		}
		return dismissOutcome{reason: r.DismissReason}, nil
	case OutcomeSnooze:
		return snoozeOutcome{timeContext: r.TimeContext}, nil
	case OutcomeIntended:
		return intendedOutcome{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidOutcome, r.Outcome)
	}
}

// Impact is the frozen completion value returned to the user.
type Impact struct {
	PKRPerMonth    float64 `json:"pkr_per_month"`
	KgCO2ePerMonth float64 `json:"kgco2e_per_month"`
}

// Bonus is a randomized completion reward.
type Bonus struct {
	PKR float64 `json:"pkr"`
}

// OutcomeResult is the outcome-shaped response: done carries impact,
// streak, and an optional bonus; dismiss and snooze carry the cooldown and
// the weight-delta summary; intended is an acknowledgement.
type OutcomeResult struct {
	Outcome        OutcomeType        `json:"outcome"`
	VerifiedImpact *Impact            `json:"verified_impact,omitempty"`
	Streak         int                `json:"streak,omitempty"`
	Bonus          *Bonus             `json:"bonus,omitempty"`
	CooldownDays   int                `json:"cooldown_days,omitempty"`
	WeightDeltas   map[string]float64 `json:"weight_deltas,omitempty"`
	Acknowledged   bool               `json:"acknowledged,omitempty"`
	Duplicate      bool               `json:"duplicate,omitempty"`
}
