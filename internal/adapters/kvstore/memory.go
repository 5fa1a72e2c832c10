// Package kvstore provides key-value store adapters.
// Clean Architecture: Adapters implementing ports.KeyValueStore.
package kvstore

import (
	"context"
	"sync"
)

// InMemoryStore is a process-local key-value store.
// Open-Closed: Can be replaced with the SQLite or Firestore store without changing usecases.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		data: make(map[string]string),
	}
}

func (s *InMemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	return v, ok, nil
}

func (s *InMemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

func (s *InMemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Close is a no-op so every backend shares the same lifecycle.
func (s *InMemoryStore) Close() error {
	return nil
}
