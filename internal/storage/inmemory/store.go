package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/nova-bank/internal/storage"
)

// Store is a map-backed KeyValueStore. It is safe for concurrent use.
// Data is lost when the process exits; use the sqlite or gcs stores for
// anything that has to survive a restart.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
	writes int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		values: make(map[string]string),
	}
}

// Get implements storage.KeyValueStore.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

// Set implements storage.KeyValueStore.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	s.writes++
	return nil
}

// Writes reports how many successful Set calls the store has seen.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Ensure Store implements KeyValueStore interface.
var _ storage.KeyValueStore = (*Store)(nil)
