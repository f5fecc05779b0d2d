package memory

import (
	"context"
	"encoding/json"
	"sync"

	"pasmi/terminal/internal/store"
)

type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneBytes(v), nil
}

func (s *Store) Put(_ context.Context, key string, value json.RawMessage) error {
	s.mu.Lock()
	s.values[key] = cloneBytes(value)
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

func cloneBytes(in []byte) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
