package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/Sarojini27-bose/memeverse/explore/core"
)

// Store keeps snapshots in process memory. Nothing survives a restart.
type Store struct {
	mu   sync.RWMutex
	data map[core.Key][]byte
}

func New() *Store {
	return &Store{data: make(map[core.Key][]byte)}
}

func (s *Store) Get(_ context.Context, key core.Key) ([]byte, error) {
	if !key.Valid() {
		return nil, core.ErrBadArguments
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, core.ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (s *Store) Set(_ context.Context, key core.Key, value []byte) error {
	if !key.Valid() {
		return core.ErrBadArguments
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = bytes.Clone(value)
	return nil
}

func (s *Store) Remove(_ context.Context, key core.Key) error {
	if !key.Valid() {
		return core.ErrBadArguments
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }
