package kv

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store for tests and for running without
// Redis. Values round-trip through JSON like the Redis implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.RLock()
	data, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, dest)
}

func (s *MemoryStore) Close() error { return nil }
