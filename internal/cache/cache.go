// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrMiss is returned by a Backend when the key is absent or expired.
	ErrMiss = errors.New("cache miss")

	// ErrUnavailable is returned by a Backend that cannot be reached.
	// GetOrCompute logs it and computes directly; callers never see it.
	ErrUnavailable = errors.New("cache backend unavailable")
)

// Backend stores encoded values with a time to live. Set must make the
// value visible atomically: a reader sees the whole value or nothing.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// DefaultComputeTimeout bounds a shared computation once it no longer
// belongs to any one caller.
const DefaultComputeTimeout = 30 * time.Second

// Cache memoizes computed values in a Backend. Concurrent misses on the
// same key within one process share a single computation.
type Cache struct {
	backend        Backend
	group          singleflight.Group
	computeTimeout time.Duration
}

// New creates a cache over backend.
func New(backend Backend) *Cache {
	return &Cache{backend: backend, computeTimeout: DefaultComputeTimeout}
}

// Backend returns the underlying store.
func (c *Cache) Backend() Backend {
	return c.backend
}

// GetOrCompute returns the value cached under key, or computes it, stores
// it for ttl and returns it. Values are JSON encoded. Compute errors are
// returned and never cached. A nil cache always computes.
//
// A shared computation runs detached from the caller that started it, so a
// cancelled caller returns its own context error while the others keep
// waiting for the result.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return compute(ctx)
	}

	if v, ok := lookup[T](ctx, c, key); ok {
		return v, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		computeCtx, cancel := context.WithTimeout(detached, c.computeTimeout)
		defer cancel()

		v, err := compute(computeCtx)
		if err != nil {
			return v, err
		}
		store(computeCtx, c, key, ttl, v)
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			slog.Debug("cache compute shared", "key", key)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}

func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var v T
	data, err := c.backend.Get(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, ErrMiss):
		slog.Debug("cache miss", "key", key)
		return v, false
	default:
		slog.Warn("cache get failed, computing directly", "key", key, "error", err)
		return v, false
	}

	if err := json.Unmarshal(data, &v); err != nil {
		slog.Warn("cache decode failed, recomputing", "key", key, "error", err)
		var zero T
		return zero, false
	}
	slog.Debug("cache hit", "key", key)
	return v, true
}

func store[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, ttl); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
	}
}

// MemoryBackend keeps values in process memory. It serves tests and
// deployments without Valkey.
type MemoryBackend struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]memoryItem), now: time.Now}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return nil, ErrMiss
	}
	if !m.now().Before(item.expiresAt) {
		delete(m.items, key)
		return nil, ErrMiss
	}
	return item.value, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, item := range m.items {
		if !now.Before(item.expiresAt) {
			delete(m.items, k)
		}
	}
	m.items[key] = memoryItem{value: value, expiresAt: now.Add(ttl)}
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
