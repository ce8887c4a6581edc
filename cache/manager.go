package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// flight is one in-progress compute. Waiters block on done and then read
// val/err; every concurrent caller for the same key receives this result.
type flight[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Manager guarantees at-most-one concurrent compute per key on top of a
// Store. Lifecycle is owned by the caller: construct it, inject it, close
// the store on shutdown. Access is serialized per key by the in-flight
// table, never by holding a lock across computes.
type Manager[V any] struct {
	store Store

	mu       sync.Mutex
	inflight map[string]*flight[V]
}

// NewManager creates a manager over store. Values cross the store boundary
// as JSON.
func NewManager[V any](store Store) *Manager[V] {
	return &Manager[V]{
		store:    store,
		inflight: make(map[string]*flight[V]),
	}
}

// GetOrCompute returns the cached value for key, or runs compute exactly
// once while concurrent callers for the same key wait for its result.
// Successful results are stored with ttl; failures are not cached.
func (m *Manager[V]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (V, error)) (V, error) {
	var zero V

	m.mu.Lock()
	if f, ok := m.inflight[key]; ok {
		m.mu.Unlock()
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-f.done:
			return f.val, f.err
		}
	}
	f := &flight[V]{done: make(chan struct{})}
	m.inflight[key] = f
	m.mu.Unlock()

	f.val, f.err = m.lookupOrCompute(ctx, key, ttl, compute)

	m.mu.Lock()
	delete(m.inflight, key)
	m.mu.Unlock()
	close(f.done)

	return f.val, f.err
}

func (m *Manager[V]) lookupOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (V, error)) (V, error) {
	var zero V

	data, ok, err := m.store.Get(key)
	if err != nil {
		return zero, fmt.Errorf("cache read for %s: %w", key, err)
	}
	if ok {
		var val V
		if err := json.Unmarshal(data, &val); err != nil {
			return zero, fmt.Errorf("cache decode for %s: %w", key, err)
		}
		return val, nil
	}

	val, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	encoded, err := json.Marshal(val)
	if err != nil {
		return zero, fmt.Errorf("cache encode for %s: %w", key, err)
	}
	if err := m.store.Set(key, encoded, ttl); err != nil {
		return zero, fmt.Errorf("cache write for %s: %w", key, err)
	}
	return val, nil
}

// Cached returns the value for key without computing, ok=false on miss.
func (m *Manager[V]) Cached(key string) (V, bool, error) {
	var zero V
	data, ok, err := m.store.Get(key)
	if err != nil || !ok {
		return zero, false, err
	}
	var val V
	if err := json.Unmarshal(data, &val); err != nil {
		return zero, false, err
	}
	return val, true, nil
}

// Invalidate removes key immediately regardless of TTL.
func (m *Manager[V]) Invalidate(key string) error {
	return m.store.Delete(key)
}
