// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/nudgeworks/verdant/internal/learner"
	"github.com/nudgeworks/verdant/internal/models"
	"github.com/nudgeworks/verdant/internal/recommend"
	"github.com/nudgeworks/verdant/internal/recommend/reranking"
	"github.com/nudgeworks/verdant/internal/store"
)

type testProfiles struct {
	profiles map[string]*models.UserProfile
	store    *store.Store
}

func (p *testProfiles) GetProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	prof, ok := p.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, models.ErrUserNotFound)
	}
	return prof, nil
}

func (p *testProfiles) GetWeightState(ctx context.Context, userID string) (*models.WeightState, error) {
	return p.store.GetWeightState(ctx, userID)
}

func catalogItems() []models.CandidateItem {
	return []models.CandidateItem{
		{
			ID:       "solar-geyser",
			Title:    "Install a solar geyser",
			Category: "energy",
			Tags:     []string{"solar", "home"},
			Metrics:  models.ImpactMetrics{PKRPerMonth: 800, MinutesPerMonth: 10, KgCO2ePerMonth: 5},
			Effort:   models.EffortProfile{Steps: 4, AvgMinutesToDo: 90, RequiresPurchase: true},
			Active:   true,
		},
		{
			ID:       "bike-commute",
			Title:    "Bike to work twice a week",
			Category: "transport",
			Tags:     []string{"bike", "health"},
			Metrics:  models.ImpactMetrics{PKRPerMonth: 300, MinutesPerMonth: 0, KgCO2ePerMonth: 9},
			Effort:   models.EffortProfile{Steps: 1, AvgMinutesToDo: 45},
			Active:   true,
		},
		{
			ID:       "led-swap",
			Title:    "Swap bulbs for LEDs",
			Category: "energy",
			Tags:     []string{"home"},
			Metrics:  models.ImpactMetrics{PKRPerMonth: 150, MinutesPerMonth: 5, KgCO2ePerMonth: 2},
			Effort:   models.EffortProfile{Steps: 1, AvgMinutesToDo: 15, RequiresPurchase: true},
			Active:   true,
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()

	st, err := store.Open(store.Options{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	catalog := store.NewMemoryCatalog(catalogItems())
	profiles := &testProfiles{
		profiles: map[string]*models.UserProfile{
			"alice": {
				UserID:          "alice",
				ArchetypeScores: models.ArchetypeScoreMap{"MoneyMax": 0.8, "EcoGuardian": 0.2},
			},
		},
		store: st,
	}

	cfg := recommend.DefaultConfig()
	engine, err := recommend.NewEngine(cfg, zerolog.Nop(), catalog, st, profiles, st, reranking.NewMMR(cfg.MMRLambda), nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	lrn, err := learner.New(zerolog.Nop(), st, catalog, profiles, nil, engine.InvalidateWeights)
	if err != nil {
		t.Fatalf("learner.New: %v", err)
	}

	handler := NewHandler(engine, lrn, profiles, catalog, zerolog.Nop())
	router := NewRouter(handler, RouterConfig{
		CORSOrigins:     []string{"*"},
		RateLimitReqs:   1000,
		RateLimitWindow: time.Minute,
	})

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, APIResponse) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, envelope
}

func TestRankEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/v1/recommendations/alice/rank", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !envelope.Success {
		t.Fatalf("envelope.Success = false: %+v", envelope.Error)
	}

	data, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var ranked recommend.RankResponse
	if err := json.Unmarshal(data, &ranked); err != nil {
		t.Fatalf("decode rank response: %v", err)
	}
	if ranked.Primary == nil {
		t.Fatal("Primary is nil with a non-empty catalog")
	}
	if len(ranked.Alternatives) != 2 {
		t.Errorf("Alternatives = %d, want 2", len(ranked.Alternatives))
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestRankUnknownUser404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/v1/recommendations/nobody/rank", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", envelope.Error)
	}
}

func TestRankRejectsBadK(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/v1/recommendations/alice/rank", `{"k": 99}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeValidationFailed {
		t.Errorf("error = %+v, want VALIDATION_FAILED", envelope.Error)
	}
}

func TestOutcomeEndpointDone(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"recommendation_id": "solar-geyser", "outcome": "done"}`
	resp, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/v1/recommendations/alice/outcome", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %+v", resp.StatusCode, envelope.Error)
	}

	data, _ := json.Marshal(envelope.Data)
	var result learner.OutcomeResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode outcome result: %v", err)
	}
	if result.VerifiedImpact == nil || result.VerifiedImpact.PKRPerMonth != 800 {
		t.Errorf("VerifiedImpact = %+v, want PKR 800", result.VerifiedImpact)
	}
	if result.Streak != 1 {
		t.Errorf("Streak = %d, want 1", result.Streak)
	}
}

func TestOutcomeValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"missing recommendation", `{"outcome": "done"}`},
		{"unknown outcome", `{"recommendation_id": "solar-geyser", "outcome": "shrug"}`},
		{"bad dismiss reason", `{"recommendation_id": "solar-geyser", "outcome": "dismiss", "dismiss_reason": "meh"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/recommendations/alice/outcome", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestOutcomeUnknownAction404(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"recommendation_id": "no-such-action", "outcome": "done"}`
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/recommendations/alice/outcome", body)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestWeightsDerivedThenStored(t *testing.T) {
	srv, st := newTestServer(t)

	// No adapted state yet: derived weights.
	resp, envelope := doJSON(t, http.MethodGet, srv.URL+"/api/v1/users/alice/weights", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, _ := json.Marshal(envelope.Data)
	var weights weightsResponse
	if err := json.Unmarshal(data, &weights); err != nil {
		t.Fatalf("decode weights: %v", err)
	}
	if !weights.Derived {
		t.Error("Derived = false, want true before any outcome")
	}

	// Record an outcome to create adapted state.
	if _, err := st.UpdateWeights(context.Background(), "alice", func(w *models.WeightPreferences) {
		w.PKR = 1.3
	}); err != nil {
		t.Fatalf("UpdateWeights: %v", err)
	}

	_, envelope = doJSON(t, http.MethodGet, srv.URL+"/api/v1/users/alice/weights", "")
	data, _ = json.Marshal(envelope.Data)
	if err := json.Unmarshal(data, &weights); err != nil {
		t.Fatalf("decode weights: %v", err)
	}
	if weights.Derived {
		t.Error("Derived = true after adapted state exists")
	}
	if weights.Weights.PKR != 1.3 {
		t.Errorf("Weights.PKR = %v, want 1.3", weights.Weights.PKR)
	}
	if weights.Version != 1 {
		t.Errorf("Version = %d, want 1", weights.Version)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, envelope := doJSON(t, http.MethodGet, srv.URL+"/api/v1/health/live", "")
	if resp.StatusCode != http.StatusOK || !envelope.Success {
		t.Errorf("live: status = %d, success = %v", resp.StatusCode, envelope.Success)
	}

	resp, envelope = doJSON(t, http.MethodGet, srv.URL+"/api/v1/health/ready", "")
	if resp.StatusCode != http.StatusOK || !envelope.Success {
		t.Errorf("ready: status = %d, success = %v", resp.StatusCode, envelope.Success)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
