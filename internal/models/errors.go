// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package models

import "errors"

// Sentinel errors shared across the ranking and learning paths. Callers
// classify with errors.Is.
var (
	// ErrUserNotFound: the profile store has no record of the user.
	ErrUserNotFound = errors.New("user not found")

	// ErrActionNotFound: the catalog has no candidate with the given id.
	ErrActionNotFound = errors.New("recommendation not found")

	// ErrInvalidOutcome: the outcome value is outside the recognized set.
	// Rejected before any persistence occurs.
	ErrInvalidOutcome = errors.New("invalid outcome")
)
