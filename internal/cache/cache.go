// Package cache implements the namespaced TTL response cache shared by
// all service clients. Entries expire lazily at read time; there is no
// background eviction. Each service client owns its own Cache instance,
// so tests get isolated caches for free.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/webpulse/gapctl/internal/metrics"
)

// Stats is a point-in-time snapshot of cache counters. Counters reset
// only with the process or an explicit reset, never automatically.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

// Cache is a process-local TTL key-value store for one namespace.
type Cache struct {
	namespace  string
	defaultTTL time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	entries  map[string]entry
	hits     uint64
	misses   uint64
	disabled bool
	nowFunc  func() time.Time // for testing
}

// CacheOption configures the Cache.
type CacheOption func(*Cache)

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) CacheOption {
	return func(c *Cache) {
		c.nowFunc = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = l
	}
}

// Disabled starts the cache globally bypassed. Entries can still be
// stored later once Enable is called.
func Disabled() CacheOption {
	return func(c *Cache) {
		c.disabled = true
	}
}

// New creates a Cache for the given namespace. defaultTTL applies when a
// fetch passes no explicit TTL.
func New(namespace string, defaultTTL time.Duration, opts ...CacheOption) *Cache {
	c := &Cache{
		namespace:  namespace,
		defaultTTL: defaultTTL,
		logger:     slog.Default(),
		entries:    make(map[string]entry),
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Namespace returns the cache's namespace.
func (c *Cache) Namespace() string {
	return c.namespace
}

// FetchOptions control one GetOrFetch call.
type FetchOptions struct {
	// TTL for the stored entry; zero means the cache default.
	TTL time.Duration
	// Bypass skips the cache entirely: the producer runs and its result
	// is not stored.
	Bypass bool
}

// GetOrFetch returns the cached value for key when present and fresh;
// otherwise it invokes producer, stores the result, and returns it.
// With Bypass set, or the cache disabled, the producer runs directly and
// nothing is stored or counted.
func GetOrFetch[T any](
	ctx context.Context,
	c *Cache,
	key string,
	opts FetchOptions,
	producer func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	if opts.Bypass || !c.Enabled() {
		return producer(ctx)
	}

	if v, ok := c.lookup(key); ok {
		typed, ok := v.(T)
		if ok {
			return typed, nil
		}
		// Type mismatch means two operations collided on one key; treat
		// as a miss and overwrite.
		c.logger.Warn("cache entry type mismatch", "cache", c.namespace, "key", key)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	v, err := producer(ctx)
	if err != nil {
		return zero, err
	}

	c.store(key, v, ttl)
	return v, nil
}

// lookup returns the live entry for key, counting a hit or miss and
// evicting the entry if its TTL has lapsed.
func (c *Cache) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.nowFunc().Sub(e.storedAt) < e.ttl {
		c.hits++
		metrics.CacheHitsTotal.WithLabelValues(c.namespace).Inc()
		return e.value, true
	}

	if ok {
		delete(c.entries, key)
	}

	c.misses++
	metrics.CacheMissesTotal.WithLabelValues(c.namespace).Inc()
	return nil, false
}

func (c *Cache) store(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: c.nowFunc(), ttl: ttl}
}

// Clear removes all entries and returns how many were removed.
// Counters are left intact.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]entry)
	return n
}

// Invalidate removes one entry, reporting whether it existed.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Stats returns a snapshot of the hit/miss counters and current size.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Size: len(c.entries)}
}

// Disable turns on global bypass. Stored entries are preserved and can
// be served again after Enable, TTL permitting.
func (c *Cache) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = true
}

// Enable turns off global bypass.
func (c *Cache) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = false
}

// Enabled reports whether the cache is serving entries.
func (c *Cache) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disabled
}
