package provider

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads a resource by key.
type FetchFunc[T any] func(ctx context.Context, key string) (T, error)

// ResourceCache memoises fetched resources. Once more than limit entries are
// held the oldest is evicted. Concurrent fetches of the same key share one
// call. Failed fetches are not cached.
type ResourceCache[T any] struct {
	fetch  FetchFunc[T]
	limit  int
	logger zerolog.Logger

	mu      sync.Mutex
	entries *orderedmap.OrderedMap[string, T]
	group   singleflight.Group
}

// NewResourceCache wraps fetch with a bounded cache.
func NewResourceCache[T any](fetch FetchFunc[T], limit int, logger zerolog.Logger) *ResourceCache[T] {
	return &ResourceCache[T]{
		fetch:   fetch,
		limit:   limit,
		logger:  logger,
		entries: orderedmap.New[string, T](),
	}
}

// Fetch returns the cached resource or loads it. A caller whose ctx ends
// stops waiting while the load carries on for the others.
func (c *ResourceCache[T]) Fetch(ctx context.Context, key string) (T, error) {
	c.mu.Lock()
	if value, ok := c.entries.Get(key); ok {
		c.mu.Unlock()
		return value, nil
	}
	c.mu.Unlock()

	// the shared fetch outlives any single caller's cancellation
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		value, err := c.fetch(fetchCtx, key)
		if err != nil {
			return value, err
		}
		c.store(key, value)
		return value, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.logger.Debug().Str("key", key).Msg("shared in-flight fetch")
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (c *ResourceCache[T]) store(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Set(key, value)
	if c.limit > 0 && c.entries.Len() > c.limit {
		oldest := c.entries.Oldest()
		c.entries.Delete(oldest.Key)
		c.logger.Debug().Str("key", oldest.Key).Msg("evicted cached resource")
	}
}

// Invalidate drops every cached entry.
func (c *ResourceCache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = orderedmap.New[string, T]()
}

// Len reports the number of cached entries.
func (c *ResourceCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Contains reports whether key is cached.
func (c *ResourceCache[T]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries.Get(key)
	return ok
}
