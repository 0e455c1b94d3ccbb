// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/nudgeworks/verdant/internal/models"
)

// MemoryCatalog is an in-memory catalog provider, seeded once at startup.
// Items are copied on read so callers can never mutate catalog state.
type MemoryCatalog struct {
	mu    sync.RWMutex
	items []models.CandidateItem
	byID  map[string]int
}

// NewMemoryCatalog builds a catalog from a fixed item list.
func NewMemoryCatalog(items []models.CandidateItem) *MemoryCatalog {
	c := &MemoryCatalog{
		items: make([]models.CandidateItem, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	copy(c.items, items)
	for i := range c.items {
		c.byID[c.items[i].ID] = i
	}
	return c
}

// LoadCatalogFile reads a JSON seed file of candidate items.
func LoadCatalogFile(path string) (*MemoryCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed %q: %w", path, err)
	}
	var items []models.CandidateItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode catalog seed %q: %w", path, err)
	}
	for i := range items {
		if items[i].ID == "" {
			return nil, fmt.Errorf("catalog seed %q: item %d has no id", path, i)
		}
	}
	return NewMemoryCatalog(items), nil
}

// ListCandidates returns catalog items matching the criteria. Region
// filtering respects items that declare no regions (available everywhere).
func (c *MemoryCatalog) ListCandidates(ctx context.Context, criteria models.FilterCriteria) ([]models.CandidateItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	categorySet := make(map[string]struct{}, len(criteria.Categories))
	for _, cat := range criteria.Categories {
		categorySet[cat] = struct{}{}
	}

	out := make([]models.CandidateItem, 0, len(c.items))
	for i := range c.items {
		item := c.items[i]
		if criteria.ActiveOnly && !item.Active {
			continue
		}
		if criteria.Locale != "" && !item.HasRegion(criteria.Locale) {
			continue
		}
		if len(categorySet) > 0 {
			if _, ok := categorySet[item.Category]; !ok {
				continue
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// GetCandidate returns one item by id, or models.ErrActionNotFound.
func (c *MemoryCatalog) GetCandidate(ctx context.Context, id string) (*models.CandidateItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("catalog item %q: %w", id, models.ErrActionNotFound)
	}
	item := c.items[idx]
	return &item, nil
}

// Size returns the number of seeded items.
func (c *MemoryCatalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
