// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

// Package profile resolves user profiles for the ranking path. Profiles come
// from a pluggable source (file-backed today), optionally refreshed with
// archetype scores from an external classifier behind a circuit breaker.
// Adapted weight state is read from the local store.
package profile

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nudgeworks/verdant/internal/models"
)

// Classifier produces archetype scores for a user. Satisfied by
// *ClassifierClient.
type Classifier interface {
	ClassifyUser(ctx context.Context, userID string) (models.ArchetypeScoreMap, error)
}

// WeightReader reads adapted weight state. Satisfied by *store.Store.
type WeightReader interface {
	GetWeightState(ctx context.Context, userID string) (*models.WeightState, error)
}

// Service composes the profile source, the optional classifier, and the
// weight store into the view the ranking engine consumes.
type Service struct {
	source     Source
	classifier Classifier
	weights    WeightReader
	logger     zerolog.Logger
}

// NewService builds a profile service. classifier may be nil when no
// external classifier is configured.
func NewService(source Source, classifier Classifier, weights WeightReader, logger zerolog.Logger) *Service {
	return &Service{
		source:     source,
		classifier: classifier,
		weights:    weights,
		logger:     logger.With().Str("component", "profile").Logger(),
	}
}

// GetProfile resolves a user's profile. When the source carries no
// archetype scores and a classifier is configured, the classifier is
// consulted; classifier failures are logged and the source profile is
// served as-is so ranking keeps working while the upstream is down.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	p, err := s.source.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(p.ArchetypeScores) == 0 && s.classifier != nil {
		scores, cerr := s.classifier.ClassifyUser(ctx, userID)
		if cerr != nil {
			s.logger.Warn().Err(cerr).Str("user_id", userID).Msg("classifier unavailable, serving profile without archetype scores")
		} else {
			p.ArchetypeScores = scores
		}
	}

	return p, nil
}

// GetWeightState reads the user's adapted weight state. Returns (nil, nil)
// when the user has no adapted state yet.
func (s *Service) GetWeightState(ctx context.Context, userID string) (*models.WeightState, error) {
	return s.weights.GetWeightState(ctx, userID)
}
