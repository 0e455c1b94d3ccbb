// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package profile

import (
	"context"
	"fmt"
	"os"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/nudgeworks/verdant/internal/models"
)

// Source resolves a user's profile. Implementations must return
// models.ErrUserNotFound for unknown users.
type Source interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// FileSource serves profiles from a JSON file keyed by user ID. Intended
// for deployments that sync profiles out-of-band rather than running a
// profile service.
type FileSource struct {
	mu       sync.RWMutex
	profiles map[string]models.UserProfile
	path     string
}

// NewFileSource loads the profile file eagerly so bad input surfaces at
// startup rather than on the first request.
func NewFileSource(path string) (*FileSource, error) {
	fs := &FileSource{path: path}
	if err := fs.Reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Reload re-reads the backing file. Safe to call while serving.
func (fs *FileSource) Reload() error {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return fmt.Errorf("failed to read profile file %s: %w", fs.path, err)
	}

	var profiles map[string]models.UserProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return fmt.Errorf("failed to parse profile file %s: %w", fs.path, err)
	}

	// The map key is authoritative.
	for id, p := range profiles {
		p.UserID = id
		profiles[id] = p
	}

	fs.mu.Lock()
	fs.profiles = profiles
	fs.mu.Unlock()
	return nil
}

// GetProfile implements Source.
func (fs *FileSource) GetProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	fs.mu.RLock()
	p, ok := fs.profiles[userID]
	fs.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, models.ErrUserNotFound)
	}
	out := p
	return &out, nil
}

// Size returns the number of loaded profiles.
func (fs *FileSource) Size() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.profiles)
}
