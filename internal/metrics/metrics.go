// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

// Package metrics provides Prometheus instrumentation for the ranking and
// learning paths: request latency, ladder behavior, outcome volumes,
// store conflicts, and cache efficiency.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ranking metrics
	RankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "verdant_rank_duration_seconds",
			Help:    "Duration of ranking requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RankCandidatesConsidered = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "verdant_rank_candidates_considered",
			Help:    "Number of catalog candidates scored per ranking request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	RankLadderStage = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verdant_rank_ladder_stage_total",
			Help: "Which filter-relaxation stage produced the candidate pool",
		},
		[]string{"stage"},
	)

	RankEmpty = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verdant_rank_empty_total",
			Help: "Ranking requests that returned an empty result",
		},
	)

	// Learner metrics
	OutcomesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verdant_outcomes_recorded_total",
			Help: "Outcome events recorded, by type",
		},
		[]string{"outcome"},
	)

	OutcomeDuplicates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verdant_outcome_duplicates_total",
			Help: "Idempotent replays of a done outcome within one day",
		},
	)

	BonusAwards = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verdant_bonus_awards_total",
			Help: "Randomized bonus rewards granted on completion",
		},
	)

	// Store metrics
	WeightWriteConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verdant_weight_write_conflicts_total",
			Help: "Optimistic weight-state writes retried after a version conflict",
		},
	)

	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verdant_store_op_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Derived-weights cache metrics
	WeightCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verdant_weight_cache_hits_total",
			Help: "Derived-weight cache hits",
		},
	)

	WeightCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verdant_weight_cache_misses_total",
			Help: "Derived-weight cache misses",
		},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verdant_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "verdant_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	// Event bus metrics
	FeedbackEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verdant_feedback_events_published_total",
			Help: "Feedback events published to the in-process bus, by type",
		},
		[]string{"event_type"},
	)

	FeedbackEventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verdant_feedback_events_consumed_total",
			Help: "Feedback events delivered to bus subscribers, by type",
		},
		[]string{"event_type"},
	)

	// Archetype classifier client metrics
	ClassifierRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verdant_classifier_requests_total",
			Help: "Archetype classifier requests, by result",
		},
		[]string{"result"}, // "ok", "error", "open_circuit"
	)
)

// RecordRank records one ranking request.
func RecordRank(duration time.Duration, candidates, ladderStage int, empty bool) {
	RankDuration.Observe(duration.Seconds())
	RankCandidatesConsidered.Observe(float64(candidates))
	RankLadderStage.WithLabelValues(strconv.Itoa(ladderStage)).Inc()
	if empty {
		RankEmpty.Inc()
	}
}

// RecordOutcome records one accepted outcome event.
func RecordOutcome(outcome string) {
	OutcomesRecorded.WithLabelValues(outcome).Inc()
}

// RecordStoreOp times one store operation.
func RecordStoreOp(operation string, duration time.Duration) {
	StoreOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}
