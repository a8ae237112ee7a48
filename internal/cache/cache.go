package cache

import (
	"sort"
	"sync"
	"time"

	"joblens-agent/internal/logging"
	"joblens-agent/pkg/models"
)

const (
	// DefaultCapacity bounds the live entry set.
	DefaultCapacity = 50
	// DefaultTTL is the age past which an entry reads as a miss.
	DefaultTTL = 24 * time.Hour
)

type entry struct {
	outcome   models.AnalysisOutcome
	writtenAt time.Time
}

// ResultCache is a bounded, time-expiring store of prior analysis outcomes
// keyed by listing identity. Expiry is checked on read; capacity is enforced
// by a write-time eviction sweep that keeps the most recently written entries.
// Re-reading an entry never extends its life.
type ResultCache struct {
	mu       sync.RWMutex
	entries  map[string]entry
	capacity int
	ttl      time.Duration
	now      func() time.Time
	logger   logging.Logger
}

// New creates a ResultCache. Non-positive capacity or TTL fall back to the
// defaults.
func New(capacity int, ttl time.Duration) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{
		entries:  make(map[string]entry),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		logger:   logging.GetGlobalLogger(),
	}
}

// Get returns the stored outcome for key. Absent and expired entries are both
// misses; an expired entry may still be physically present until the next
// sweep, which readers must never observe.
func (c *ResultCache) Get(key string) (models.AnalysisOutcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return models.AnalysisOutcome{}, false
	}
	if c.now().Sub(e.writtenAt) > c.ttl {
		return models.AnalysisOutcome{}, false
	}
	return e.outcome, true
}

// Put upserts an outcome and runs the eviction sweep. Concurrent writers for
// the same key compute the same conceptual value, so last-write-wins is fine.
func (c *ResultCache) Put(key string, outcome models.AnalysisOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{outcome: outcome, writtenAt: c.now()}
	c.sweep()
}

// GetStale returns the stored outcome for key even when it has aged past the
// TTL. Used only for the degraded path when the backend is unreachable; the
// caller is responsible for flagging the result as stale.
func (c *ResultCache) GetStale(key string) (models.AnalysisOutcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return models.AnalysisOutcome{}, false
	}
	return e.outcome, true
}

// Invalidate removes the entry for key, if present.
func (c *ResultCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of physically present entries, expired included.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// sweep trims the store back to capacity, keeping the newest entries by
// writtenAt. Caller must hold the write lock.
func (c *ResultCache) sweep() {
	if len(c.entries) <= c.capacity {
		return
	}

	type keyed struct {
		key       string
		writtenAt time.Time
	}
	all := make([]keyed, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, keyed{key: k, writtenAt: e.writtenAt})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].writtenAt.After(all[j].writtenAt)
	})

	evicted := 0
	for _, k := range all[c.capacity:] {
		delete(c.entries, k.key)
		evicted++
	}

	c.logger.Debug("Cache eviction sweep completed", map[string]interface{}{
		"evicted":   evicted,
		"remaining": len(c.entries),
	})
}
