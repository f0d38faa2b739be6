// Package cache provides in-memory, time-bounded lookup caches for resolver results.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/mo"
)

// DefaultTTL is the lifetime applied when none is configured.
const DefaultTTL = 5 * time.Minute

// TTL is a typed view over a go-cache store whose entries expire a fixed duration after
// insertion. When maxEntries is positive, inserting into a full cache evicts the entry
// closest to expiry.
type TTL[K ~string, V any] struct {
	mu         sync.Mutex
	store      *gocache.Cache
	ttl        time.Duration
	maxEntries int
}

// Option customizes a TTL cache.
type Option func(*options)

type options struct {
	maxEntries int
}

// WithMaxEntries bounds the number of stored entries.
func WithMaxEntries(n int) Option {
	return func(o *options) { o.maxEntries = n }
}

// New creates a cache whose entries live for ttl. Expired entries are purged every two TTLs.
func New[K ~string, V any](ttl time.Duration, opts ...Option) *TTL[K, V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &TTL[K, V]{
		store:      gocache.New(ttl, 2*ttl),
		ttl:        ttl,
		maxEntries: o.maxEntries,
	}
}

// Get returns the cached value if it was stored less than TTL ago.
func (c *TTL[K, V]) Get(key K) mo.Option[V] {
	cached, found := c.store.Get(string(key))
	if !found {
		return mo.None[V]()
	}

	v, ok := cached.(V)
	if !ok {
		return mo.None[V]()
	}
	return mo.Some(v)
}

// Put stores value under key, overwriting any previous entry and restarting its lifetime.
func (c *TTL[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 {
		if _, exists := c.store.Get(string(key)); !exists && c.store.ItemCount() >= c.maxEntries {
			c.store.DeleteExpired()
			if c.store.ItemCount() >= c.maxEntries {
				c.evictOldest()
			}
		}
	}

	c.store.Set(string(key), value, gocache.DefaultExpiration)
}

// Len reports the number of stored entries, including expired ones not yet purged.
func (c *TTL[K, V]) Len() int {
	return c.store.ItemCount()
}

// All entries share one TTL, so the earliest expiration is the oldest insertion.
func (c *TTL[K, V]) evictOldest() {
	var (
		oldestKey string
		oldestAt  int64
		found     bool
	)

	for k, item := range c.store.Items() {
		if !found || item.Expiration < oldestAt {
			oldestKey, oldestAt, found = k, item.Expiration, true
		}
	}

	if found {
		c.store.Delete(oldestKey)
	}
}
