// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// maxRequestBody caps request bodies at 64 KiB; all accepted payloads
// are small JSON documents.
const maxRequestBody = 64 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// rankRequestBody is the optional body for the rank endpoint.
type rankRequestBody struct {
	K          int  `json:"k" validate:"omitempty,min=1,max=20"`
	SprintWeek bool `json:"sprint_week"`
	MonthEnd   bool `json:"month_end"`
}

// outcomeRequestBody is the body for the outcome endpoint.
type outcomeRequestBody struct {
	RecommendationID string `json:"recommendation_id" validate:"required"`
	Outcome          string `json:"outcome" validate:"required,oneof=done dismiss snooze intended"`
	DismissReason    string `json:"dismiss_reason" validate:"omitempty,oneof=not_relevant too_hard already_doing"`
	TimeContext      string `json:"time_context" validate:"omitempty,oneof=weekend evening"`
}

// decodeBody reads and unmarshals a JSON request body into dst, then
// runs struct validation. An empty body is allowed when allowEmpty is
// set; dst keeps its zero values.
func decodeBody(r *http.Request, dst interface{}, allowEmpty bool) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) == 0 {
		if allowEmpty {
			return nil
		}
		return errors.New("request body is required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return validate.Struct(dst)
}

// validationDetails flattens validator errors to field -> constraint for
// the response envelope.
func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}
