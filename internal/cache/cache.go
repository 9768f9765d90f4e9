// Package cache provides a generic, concurrency-safe TTL cache with a bounded
// size. Expired entries are dropped lazily on read and in bulk by a janitor.
package cache

import (
	"context"
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	fetchedAt time.Time
	ttl       time.Duration
	seq       uint64
}

func (it item[V]) expired(now time.Time) bool {
	return now.Sub(it.fetchedAt) >= it.ttl
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
	Entries     int
}

// EvictFunc is called (outside the lock) whenever an entry is evicted for capacity.
type EvictFunc[K comparable] func(key K)

// Cache is a TTL cache keyed by K.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	items      map[K]item[V]
	maxEntries int
	now        func() time.Time
	onEvict    EvictFunc[K]
	seq        uint64

	hits, misses, evictions, expirations uint64

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithMaxEntries bounds the number of live entries. Zero means unbounded.
func WithMaxEntries[K comparable, V any](n int) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.maxEntries = n
	}
}

// WithClock overrides the time source.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.now = now
	}
}

// WithOnEvict registers a capacity-eviction hook.
func WithOnEvict[K comparable, V any](fn EvictFunc[K]) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// New creates a cache. When sweepInterval > 0 a janitor goroutine purges
// expired entries on that cadence until Close is called.
func New[K comparable, V any](sweepInterval time.Duration, opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]item[V]),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if sweepInterval > 0 {
		go c.janitor(sweepInterval)
	}

	return c
}

// Get returns the value for key if present and fresh.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	it, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}

	if it.expired(c.now()) {
		delete(c.items, key)
		c.expirations++
		c.misses++
		return zero, false
	}

	c.hits++
	return it.value, true
}

// Set stores value under key for ttl. When inserting a new key would exceed
// the capacity, the entry with the oldest fetch time is evicted first.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	var evicted []K

	c.mu.Lock()
	now := c.now()

	if _, exists := c.items[key]; !exists && c.maxEntries > 0 {
		for len(c.items) >= c.maxEntries {
			oldest, ok := c.oldestLocked()
			if !ok {
				break
			}
			delete(c.items, oldest)
			c.evictions++
			evicted = append(evicted, oldest)
		}
	}

	c.seq++
	c.items[key] = item[V]{value: value, fetchedAt: now, ttl: ttl, seq: c.seq}
	onEvict := c.onEvict
	c.mu.Unlock()

	if onEvict != nil {
		for _, k := range evicted {
			onEvict(k)
		}
	}
}

// Delete invalidates key.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Sweep purges every expired entry and returns how many were removed.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
			removed++
		}
	}
	c.expirations += uint64(removed)
	return removed
}

// Len returns the number of stored entries, including not-yet-swept expired ones.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		Entries:     len(c.items),
	}
}

// Close stops the janitor. Safe to call more than once.
func (c *Cache[K, V]) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Cache[K, V]) oldestLocked() (K, bool) {
	var (
		oldestKey K
		oldest    item[V]
		found     bool
	)
	for k, it := range c.items {
		if !found || it.fetchedAt.Before(oldest.fetchedAt) ||
			(it.fetchedAt.Equal(oldest.fetchedAt) && it.seq < oldest.seq) {
			oldestKey, oldest, found = k, it, true
		}
	}
	return oldestKey, found
}

func (c *Cache[K, V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}
