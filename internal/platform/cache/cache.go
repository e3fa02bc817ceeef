// Package cache provides the bounded, expiring in-process caches used for
// issued tokens and downstream configuration lookups.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ---------------------------------------------------------------------------
// TTL cache
// ---------------------------------------------------------------------------

type entry[V any] struct {
	value     V
	expiresAt time.Time
	inserted  uint64
}

// TTL is a thread-safe map whose entries expire after a fixed time to live.
// When full, inserting a new key evicts the oldest inserted entry. A zero
// capacity means unbounded.
type TTL[K comparable, V any] struct {
	mu       sync.RWMutex
	entries  map[K]*entry[V]
	ttl      time.Duration
	capacity int
	seq      uint64
	now      func() time.Time
	loads    singleflight.Group
}

// New returns a cache holding at most capacity entries for ttl each.
func New[K comparable, V any](capacity int, ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		entries:  make(map[K]*entry[V]),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns the value for key. Expired entries are removed lazily and
// reported as a miss.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	var zero V
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && c.capacity > 0 && len(c.entries) >= c.capacity {
		c.evictLocked()
	}
	c.seq++
	c.entries[key] = &entry[V]{value: value, expiresAt: c.now().Add(c.ttl), inserted: c.seq}
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. Concurrent misses on the same key share one load. Errors are
// returned uncached.
func (c *TTL[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	res, err, _ := c.loads.Do(fmt.Sprintf("%#v", key), func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := res.(V)
	return v, nil
}

// Delete removes key.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*entry[V])
}

// Len reports the number of stored entries, expired or not.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked drops expired entries, or the oldest entry when none have
// expired. Caller holds the write lock.
func (c *TTL[K, V]) evictLocked() {
	now := c.now()
	var (
		oldestKey K
		oldest    uint64
		found     bool
		expired   bool
	)
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			expired = true
			continue
		}
		if !found || e.inserted < oldest {
			oldestKey, oldest, found = k, e.inserted, true
		}
	}
	if !expired && found {
		delete(c.entries, oldestKey)
	}
}

// StartCleanup periodically removes expired entries until ctx is cancelled.
func (c *TTL[K, V]) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				now := c.now()
				for k, e := range c.entries {
					if now.After(e.expiresAt) {
						delete(c.entries, k)
					}
				}
				c.mu.Unlock()
			}
		}
	}()
}
