// Package cache provides a TTL cache with single-flight refresh and an
// optional shared second tier.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Remote is a byte-oriented second tier shared between processes.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type entry[T any] struct {
	value   T
	expires time.Time
}

type options struct {
	remote Remote
	now    func() time.Time
}

// Option configures a Cache.
type Option func(*options)

// WithRemote adds a second tier consulted on local misses.
func WithRemote(r Remote) Option { return func(o *options) { o.remote = r } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// Cache memoizes computed values per key for a TTL. Concurrent misses on the
// same key share one compute call.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	group   singleflight.Group
	remote  Remote
	now     func() time.Time
}

// New creates an empty cache.
func New[T any](opts ...Option) *Cache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		entries: make(map[string]entry[T]),
		remote:  o.remote,
		now:     o.now,
	}
}

// Get returns the cached value for key, calling compute when it is missing or
// expired. Errors from compute are returned and nothing is stored.
func (c *Cache[T]) Get(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		if v, ok := c.fromRemote(ctx, key, ttl); ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return v, err
		}
		c.store(key, v, ttl)
		c.toRemote(ctx, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Invalidate drops key from the local tier.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of live local entries.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expires) {
			n++
		}
	}
	return n
}

func (c *Cache[T]) lookup(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (c *Cache[T]) store(key string, v T, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[T]{value: v, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache[T]) fromRemote(ctx context.Context, key string, ttl time.Duration) (T, bool) {
	var zero T
	if c.remote == nil {
		return zero, false
	}
	data, ok, err := c.remote.Get(ctx, key)
	if err != nil {
		zap.L().Warn("cache remote get failed", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		zap.L().Warn("cache remote decode failed", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	c.store(key, v, ttl)
	return v, true
}

func (c *Cache[T]) toRemote(ctx context.Context, key string, v T, ttl time.Duration) {
	if c.remote == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Warn("cache remote encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.remote.Set(ctx, key, data, ttl); err != nil {
		zap.L().Warn("cache remote set failed", zap.String("key", key), zap.Error(err))
	}
}
