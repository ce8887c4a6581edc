// Package cache provides the TTL snapshot cache with single-flight
// de-duplication. Entries are replaced wholesale on refresh, never
// partially updated.
package cache

import (
	"sync"
	"time"

	"github.com/google/btree"
)

// Store is the minimal contract the manager needs from a backing store:
// get/set/delete with TTL. Implementations decide where bytes live.
type Store interface {
	// Get returns the stored value, or ok=false on absence or expiry.
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Close() error
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// expiry-ordered so the purge loop can stop at the first live entry
func entryLess(a, b *memoryEntry) bool {
	if a.expiresAt.Equal(b.expiresAt) {
		return a.key < b.key
	}
	return a.expiresAt.Before(b.expiresAt)
}

// MemoryStore is the in-process backing store. A btree indexed by expiry
// lets the purge loop evict without scanning every entry.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	expiry  *btree.BTreeG[*memoryEntry]
	done    chan struct{}
	once    sync.Once
}

// NewMemoryStore creates a memory store and starts its purge loop.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		expiry:  btree.NewG[*memoryEntry](32, entryLess),
		done:    make(chan struct{}),
	}
	go s.purgeLoop()
	return s
}

func (s *MemoryStore) purgeLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.purge(now)
		}
	}
}

func (s *MemoryStore) purge(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*memoryEntry
	s.expiry.Ascend(func(e *memoryEntry) bool {
		if e.expiresAt.After(now) {
			return false
		}
		expired = append(expired, e)
		return true
	})
	for _, e := range expired {
		s.expiry.Delete(e)
		delete(s.entries, e.key)
	}
}

// Get returns a stored value. Expired entries are evicted eagerly, so
// expiry is strict even between purge ticks.
func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.After(time.Now()) {
		s.expiry.Delete(e)
		delete(s.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set replaces the entry for key atomically.
func (s *MemoryStore) Set(key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		s.expiry.Delete(old)
	}
	e := &memoryEntry{key: key, value: value, expiresAt: time.Now().Add(ttl)}
	s.entries[key] = e
	s.expiry.ReplaceOrInsert(e)
	return nil
}

// Delete removes key immediately regardless of TTL.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.expiry.Delete(e)
		delete(s.entries, key)
	}
	return nil
}

// Close stops the purge loop.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
