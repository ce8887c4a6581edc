package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var bucketEntries = []byte("entries")

type boltRecord struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BoltStore persists cache entries in a bbolt file so a restarted process
// can serve snapshots without re-querying providers.
type BoltStore struct {
	db   *bbolt.DB
	done chan struct{}
	once sync.Once
}

// NewBoltStore opens (or creates) the cache database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltStore{db: db, done: make(chan struct{})}
	go s.purgeLoop()
	return s, nil
}

func (s *BoltStore) purgeLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			_ = s.purge(now)
		}
	}
}

func (s *BoltStore) purge(now time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntries)
		cursor := bucket.Cursor()

		var expired [][]byte
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil || !rec.ExpiresAt.After(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
		}
		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns a stored value; expired entries read as misses.
func (s *BoltStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEntries).Get([]byte(key))
		if data == nil {
			return nil
		}
		var rec boltRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if !rec.ExpiresAt.After(time.Now()) {
			return nil
		}
		value = append([]byte(nil), rec.Value...)
		ok = true
		return nil
	})
	return value, ok, err
}

// Set replaces the entry for key atomically.
func (s *BoltStore) Set(key string, value []byte, ttl time.Duration) error {
	rec := boltRecord{Value: value, ExpiresAt: time.Now().Add(ttl)}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).Put([]byte(key), data)
	})
}

// Delete removes key immediately regardless of TTL.
func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).Delete([]byte(key))
	})
}

// Close stops the purge loop and closes the database.
func (s *BoltStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.db.Close()
}
