package cache

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/aftersales-service/internal/domain"
)

type memoryEntry struct {
	value      domain.QualityAnalytics
	generation int64
	expiresAt  time.Time
}

// MemoryAnalyticsCache is the single-process AnalyticsCache used when Redis is
// not configured.
type MemoryAnalyticsCache struct {
	mu          sync.Mutex
	entries     map[string]memoryEntry
	generations map[string]int64
	now         func() time.Time
}

// NewMemoryAnalyticsCache builds an empty cache. now may be nil.
func NewMemoryAnalyticsCache(now func() time.Time) *MemoryAnalyticsCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryAnalyticsCache{
		entries:     make(map[string]memoryEntry),
		generations: make(map[string]int64),
		now:         now,
	}
}

func memoryKey(tenantID, key string) string {
	return tenantID + "|" + key
}

// Get returns a copy of the cached value.
func (c *MemoryAnalyticsCache) Get(_ context.Context, tenantID, key string) (*domain.QualityAnalytics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := memoryKey(tenantID, key)
	entry, ok := c.entries[k]
	if !ok {
		return nil, nil
	}
	if entry.generation != c.generations[tenantID] || !c.now().Before(entry.expiresAt) {
		delete(c.entries, k)
		return nil, nil
	}
	value := entry.value
	return &value, nil
}

func (c *MemoryAnalyticsCache) Generation(_ context.Context, tenantID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[tenantID], nil
}

// Set is a no-op once the tenant has moved past generation.
func (c *MemoryAnalyticsCache) Set(_ context.Context, tenantID, key string, generation int64, value *domain.QualityAnalytics, ttl time.Duration) error {
	if value == nil || ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[tenantID] != generation {
		return nil
	}
	c.entries[memoryKey(tenantID, key)] = memoryEntry{
		value:      *value,
		generation: generation,
		expiresAt:  c.now().Add(ttl),
	}
	return nil
}

func (c *MemoryAnalyticsCache) Invalidate(_ context.Context, tenantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[tenantID]++
	return nil
}
