package memstore

import (
	"context"
	"sync"

	"github.com/cognicore/kafparse/pkg/kafparse/store"
)

// Store is an in-memory implementation of store.Cache, used by tests and
// by the HTTP service when no cache file is configured.
type Store struct {
	mu      sync.RWMutex
	entries map[store.Key]store.Entry
	hits    int64
	misses  int64
}

// New creates an empty in-memory cache.
func New() *Store {
	return &Store{entries: make(map[store.Key]store.Entry)}
}

// Close implements store.Cache.
func (s *Store) Close() error { return nil }

// Get implements store.Cache.
func (s *Store) Get(ctx context.Context, key store.Key) (store.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if ok {
		s.hits++
	} else {
		s.misses++
	}
	return e, ok, nil
}

// Put implements store.Cache.
func (s *Store) Put(ctx context.Context, e store.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[e.Key] = e
	return nil
}

// Stats implements store.Cache.
func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return store.Stats{Entries: int64(len(s.entries)), Hits: s.hits, Misses: s.misses}, nil
}
