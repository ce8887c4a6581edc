package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Set("k", []byte("value"), time.Minute))

	got, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), got)

	_, ok, err = s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreStrictExpiry(t *testing.T) {
	s := NewMemoryStore()
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Set("k", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	// Expiry is strict even before the purge loop runs.
	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreReplaceWholesale(t *testing.T) {
	s := NewMemoryStore()
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Set("k", []byte("old"), time.Minute))
	require.NoError(t, s.Set("k", []byte("new"), time.Minute))

	got, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
}

func TestMemoryStorePurge(t *testing.T) {
	s := NewMemoryStore()
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Set("dead", []byte("v"), 5*time.Millisecond))
	require.NoError(t, s.Set("live", []byte("v"), time.Hour))

	time.Sleep(10 * time.Millisecond)
	s.purge(time.Now())

	s.mu.Lock()
	_, deadThere := s.entries["dead"]
	_, liveThere := s.entries["live"]
	s.mu.Unlock()

	assert.False(t, deadThere)
	assert.True(t, liveThere)
}

func TestBoltStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Set("k", []byte("value"), time.Minute))

	got, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), got)

	require.NoError(t, s.Delete("k"))
	_, ok, err = s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBoltStoreExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Set("k", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries read as misses")

	require.NoError(t, s.purge(time.Now()))
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", []byte("persisted"), time.Hour))
	require.NoError(t, s.Close())

	s2, err := NewBoltStore(path)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	got, ok, err := s2.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("persisted"), got)
}
