// Package cache provides the fingerprint-keyed result cache: a TTL'd LRU
// in front of a singleflight group, so concurrent requests for the same
// document share one computation and later requests skip it entirely.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

type Cache[V any] struct {
	group singleflight.Group
	store *expirable.LRU[string, V]
}

func New[V any](maxEntries int, ttl time.Duration) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &Cache[V]{store: expirable.NewLRU[string, V](maxEntries, nil, ttl)}
}

// GetOrCompute returns the cached value for key, or runs compute exactly
// once across concurrent callers and caches the result. The boolean
// reports whether the caller got a shared value instead of running its
// own computation. Failed computations are never stored.
//
// compute runs detached from the caller's context: one caller hanging up
// must not starve the others waiting on the same flight.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, bool, error) {
	if v, ok := c.store.Get(key); ok {
		return v, true, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		// Re-check: a previous flight may have landed between our Get and Do.
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}
		v, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return v.(V), shared, nil
}

// Len reports the number of live entries.
func (c *Cache[V]) Len() int { return c.store.Len() }

// Purge drops all entries.
func (c *Cache[V]) Purge() { c.store.Purge() }
