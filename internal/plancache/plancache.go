// Package plancache caches first-batch backlog plans per session.
//
// A retried or duplicated first request should not re-invoke the
// planning provider. The cache is best-effort: a miss or a backend
// failure only costs one extra planning call.
package plancache

import (
	"context"
	"sync"
	"time"

	"github.com/formforge/FormForge/internal/models"
)

const (
	// DefaultTTL is how long a cached plan stays valid.
	DefaultTTL = 15 * time.Minute
	// MinTTL and MaxTTL clamp configured TTL values.
	MinTTL = time.Minute
	MaxTTL = time.Hour

	keyPrefix = "question_plan:"
)

// Cache stores and retrieves a session's planned backlog.
type Cache interface {
	Get(ctx context.Context, sessionID string) ([]models.FlowPlanItem, bool)
	Set(ctx context.Context, sessionID string, items []models.FlowPlanItem)
}

// ClampTTL bounds a configured TTL to the supported window.
func ClampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	if ttl < MinTTL {
		return MinTTL
	}
	if ttl > MaxTTL {
		return MaxTTL
	}
	return ttl
}

type memoryEntry struct {
	items     []models.FlowPlanItem
	expiresAt time.Time
}

// MemoryCache is the zero-infrastructure default backend.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates an in-process cache with the given TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ClampTTL(ttl),
		now:     time.Now,
	}
}

// Get returns the cached plan for a session if it has not expired.
func (c *MemoryCache) Get(_ context.Context, sessionID string) ([]models.FlowPlanItem, bool) {
	if sessionID == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[keyPrefix+sessionID]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, keyPrefix+sessionID)
		return nil, false
	}
	items := make([]models.FlowPlanItem, len(entry.items))
	copy(items, entry.items)
	return items, true
}

// Set stores a session's plan.
func (c *MemoryCache) Set(_ context.Context, sessionID string, items []models.FlowPlanItem) {
	if sessionID == "" || len(items) == 0 {
		return
	}
	stored := make([]models.FlowPlanItem, len(items))
	copy(stored, items)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[keyPrefix+sessionID] = memoryEntry{items: stored, expiresAt: c.now().Add(c.ttl)}
}
