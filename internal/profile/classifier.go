// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/nudgeworks/verdant/internal/metrics"
	"github.com/nudgeworks/verdant/internal/models"
)

// classifierRequest is the wire request to the archetype classifier.
type classifierRequest struct {
	UserID string `json:"user_id"`
}

// classifierResponse is the wire response from the archetype classifier.
type classifierResponse struct {
	UserID string                   `json:"user_id"`
	Scores models.ArchetypeScoreMap `json:"scores"`
}

// ClassifierClient calls the external personality-archetype classifier.
// The circuit breaker prevents cascading failures when the classifier is
// unavailable or slow: ranking falls back to stored archetype scores
// rather than blocking every request on a dead upstream.
//
// The breaker uses real time (via sony/gobreaker) for its interval and
// timeout calculations. Tests should exercise the underlying HTTP path
// directly rather than forcing breaker transitions.
type ClassifierClient struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[models.ArchetypeScoreMap]
	name    string
}

// NewClassifierClient creates a classifier client with circuit breaker.
// Breaker configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
func NewClassifierClient(baseURL string, timeout time.Duration) *ClassifierClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cbName := "archetype-classifier"

	cb := gobreaker.NewCircuitBreaker[models.ArchetypeScoreMap](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
	})

	return &ClassifierClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cb:      cb,
		name:    cbName,
	}
}

// ClassifyUser requests fresh archetype scores for a user. Returns
// gobreaker.ErrOpenState wrapped when the circuit is open; callers are
// expected to fall back to stored scores on any error.
func (c *ClassifierClient) ClassifyUser(ctx context.Context, userID string) (models.ArchetypeScoreMap, error) {
	scores, err := c.cb.Execute(func() (models.ArchetypeScoreMap, error) {
		return c.classify(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.ClassifierRequests.WithLabelValues("open_circuit").Inc()
		} else {
			metrics.ClassifierRequests.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	metrics.ClassifierRequests.WithLabelValues("ok").Inc()
	return scores, nil
}

func (c *ClassifierClient) classify(ctx context.Context, userID string) (models.ArchetypeScoreMap, error) {
	body, err := json.Marshal(classifierRequest{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("classifier returned HTTP %d", resp.StatusCode)
	}

	var out classifierResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	if len(out.Scores) == 0 {
		return nil, fmt.Errorf("classifier returned no scores for user %s", userID)
	}

	return out.Scores, nil
}
