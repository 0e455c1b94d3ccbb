// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/nudgeworks/verdant/internal/learner"
	"github.com/nudgeworks/verdant/internal/logging"
	"github.com/nudgeworks/verdant/internal/models"
	"github.com/nudgeworks/verdant/internal/persona"
	"github.com/nudgeworks/verdant/internal/recommend"
)

// Handler serves the recommendation API endpoints.
type Handler struct {
	engine    *recommend.Engine
	learner   *learner.Learner
	profiles  recommend.ProfileStore
	catalog   recommend.CatalogProvider
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandler wires the API handler.
func NewHandler(engine *recommend.Engine, lrn *learner.Learner, profiles recommend.ProfileStore, catalog recommend.CatalogProvider, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:    engine,
		learner:   lrn,
		profiles:  profiles,
		catalog:   catalog,
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
	}
}

// Rank handles POST /api/v1/recommendations/{userID}/rank.
// The body is optional; defaults rank with configured K and no context
// flags.
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		rw.BadRequest("user id is required")
		return
	}

	var body rankRequestBody
	if err := decodeBody(r, &body, true); err != nil {
		rw.ValidationError(err.Error(), validationDetails(err))
		return
	}

	resp, err := h.engine.Rank(r.Context(), recommend.RankRequest{
		UserID:     userID,
		K:          body.K,
		SprintWeek: body.SprintWeek,
		MonthEnd:   body.MonthEnd,
	})
	if err != nil {
		h.writeDomainError(rw, r, err)
		return
	}

	rw.Success(resp)
}

// Outcome handles POST /api/v1/recommendations/{userID}/outcome.
func (h *Handler) Outcome(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		rw.BadRequest("user id is required")
		return
	}

	var body outcomeRequestBody
	if err := decodeBody(r, &body, false); err != nil {
		rw.ValidationError(err.Error(), validationDetails(err))
		return
	}

	result, err := h.learner.RecordOutcome(r.Context(), learner.OutcomeRequest{
		UserID:           userID,
		RecommendationID: body.RecommendationID,
		Outcome:          learner.OutcomeType(body.Outcome),
		DismissReason:    models.DismissReason(body.DismissReason),
		TimeContext:      models.TimeContext(body.TimeContext),
	})
	if err != nil {
		h.writeDomainError(rw, r, err)
		return
	}

	rw.Success(result)
}

// weightsResponse is the payload for the weights endpoint. Derived is
// set when the user has no adapted state and the weights were computed
// from the persona vector on the fly.
type weightsResponse struct {
	UserID    string                   `json:"user_id"`
	Weights   models.WeightPreferences `json:"weights"`
	Version   uint64                   `json:"version"`
	UpdatedAt *time.Time               `json:"updated_at,omitempty"`
	Derived   bool                     `json:"derived"`
}

// Weights handles GET /api/v1/users/{userID}/weights.
func (h *Handler) Weights(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		rw.BadRequest("user id is required")
		return
	}

	state, err := h.profiles.GetWeightState(r.Context(), userID)
	if err != nil {
		h.writeDomainError(rw, r, err)
		return
	}
	if state != nil {
		rw.Success(weightsResponse{
			UserID:    userID,
			Weights:   state.Weights,
			Version:   state.Version,
			UpdatedAt: &state.UpdatedAt,
		})
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		h.writeDomainError(rw, r, err)
		return
	}

	vec := persona.MapArchetypes(profile.ArchetypeScores)
	rw.Success(weightsResponse{
		UserID:  userID,
		Weights: persona.DeriveWeights(vec, persona.Context{}),
		Derived: true,
	})
}

// healthResponse is the payload for health endpoints.
type healthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	CatalogSize   int     `json:"catalog_size,omitempty"`
}

// HealthLive handles GET /api/v1/health/live: process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(healthResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles GET /api/v1/health/ready: the service can rank,
// which requires a non-empty catalog.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	items, err := h.catalog.ListCandidates(r.Context(), models.FilterCriteria{})
	if err != nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeInternalError, "catalog unavailable")
		return
	}
	if len(items) == 0 {
		rw.Error(http.StatusServiceUnavailable, ErrCodeInternalError, "catalog is empty")
		return
	}

	rw.Success(healthResponse{
		Status:        "ready",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		CatalogSize:   len(items),
	})
}

// writeDomainError maps domain sentinel errors to HTTP responses.
func (h *Handler) writeDomainError(rw *ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		rw.NotFound("user not found")
	case errors.Is(err, models.ErrActionNotFound):
		rw.NotFound("recommendation not found")
	case errors.Is(err, models.ErrInvalidOutcome):
		rw.BadRequest(err.Error())
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		rw.InternalError("internal error")
	}
}
