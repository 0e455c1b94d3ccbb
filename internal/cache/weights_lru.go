// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

// Package cache provides the in-memory TTL cache for persona-derived
// scoring weights, keyed by user id.
package cache

import (
	"sync"
	"time"

	"github.com/nudgeworks/verdant/internal/models"
)

// weightsEntry is one node of the LRU list.
type weightsEntry struct {
	key       string
	value     models.WeightPreferences
	prev      *weightsEntry
	next      *weightsEntry
	expiresAt time.Time
}

// WeightsLRU is a thread-safe LRU cache with TTL for derived weights.
// O(1) Get, Add, and eviction via a doubly-linked list plus a hashmap.
// Expiration is lazy: entries past their TTL are dropped on access.
type WeightsLRU struct {
	mu sync.RWMutex

	capacity int
	ttl      time.Duration

	items map[string]*weightsEntry

	// head.next is the most recently used, tail.prev the least.
	head *weightsEntry
	tail *weightsEntry

	hits   int64
	misses int64
}

// NewWeightsLRU creates a derived-weights cache with the given capacity and
// TTL. Non-positive arguments fall back to safe defaults.
func NewWeightsLRU(capacity int, ttl time.Duration) *WeightsLRU {
	if capacity <= 0 {
		capacity = 4096
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	c := &WeightsLRU{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*weightsEntry, capacity),
		head:     &weightsEntry{},
		tail:     &weightsEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the cached weights for a user, moving the entry to the front.
func (c *WeightsLRU) Get(userID string) (models.WeightPreferences, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[userID]; exists {
		if time.Now().After(entry.expiresAt) {
			c.removeEntry(entry)
			c.misses++
			return models.WeightPreferences{}, false
		}
		c.moveToFront(entry)
		c.hits++
		return entry.value, true
	}

	c.misses++
	return models.WeightPreferences{}, false
}

// Add inserts or refreshes a user's derived weights.
func (c *WeightsLRU) Add(userID string, w models.WeightPreferences) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if entry, exists := c.items[userID]; exists {
		entry.value = w
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return
	}

	entry := &weightsEntry{
		key:       userID,
		value:     w,
		expiresAt: expiresAt,
	}
	c.addToFront(entry)
	c.items[userID] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

// Invalidate drops a user's cached weights, typically after an adaptive
// update makes the derived values stale.
func (c *WeightsLRU) Invalidate(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[userID]; exists {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Len returns the current number of entries.
func (c *WeightsLRU) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns hit/miss counters and the current size.
func (c *WeightsLRU) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.items)
}

// CleanupExpired removes all expired entries, returning how many were dropped.
func (c *WeightsLRU) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if now.After(entry.expiresAt) {
			c.removeEntry(entry)
			removed++
		}
		entry = prev
	}
	return removed
}

// Internal methods (must be called with lock held)

func (c *WeightsLRU) addToFront(entry *weightsEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *WeightsLRU) moveToFront(entry *weightsEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *WeightsLRU) removeEntry(entry *weightsEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *WeightsLRU) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
