package wizard

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemorySnapshotStore is a concurrency-safe SnapshotStore kept in memory.
type InMemorySnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewInMemorySnapshotStore creates an empty store.
func NewInMemorySnapshotStore() *InMemorySnapshotStore {
	return &InMemorySnapshotStore{data: make(map[string][]byte)}
}

// Get returns a copy of the payload stored under key.
func (s *InMemorySnapshotStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.data[key]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return append([]byte(nil), payload...), nil
}

// Put stores a copy of payload under key.
func (s *InMemorySnapshotStore) Put(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), payload...)
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *InMemorySnapshotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys lists stored keys with the given prefix, sorted.
func (s *InMemorySnapshotStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
