package cache

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/Sarojini27-bose/memeverse/explore/core"
)

const generationStripes = 256

// Store is a read-through cache in front of another snapshot store.
// Writes go to the backing store and evict the cached entry. A read only
// fills the cache when no write to its key stripe happened meanwhile.
type Store struct {
	log   *slog.Logger
	next  core.Store
	cache *ristretto.Cache
	ttl   time.Duration

	mu          sync.Mutex
	generations [generationStripes]uint64
}

func New(log *slog.Logger, next core.Store, maxCost int64, ttl time.Duration) (*Store, error) {
	if next == nil {
		return nil, core.ErrNilDependency
	}
	if maxCost <= 0 {
		maxCost = 64 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost / 100,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Store{log: log, next: next, cache: c, ttl: ttl}, nil
}

func (s *Store) Get(ctx context.Context, key core.Key) ([]byte, error) {
	k := key.String()
	if v, ok := s.cache.Get(k); ok {
		if b, ok := v.([]byte); ok {
			return bytes.Clone(b), nil
		}
	}

	stripe := stripeOf(k)
	s.mu.Lock()
	gen := s.generations[stripe]
	s.mu.Unlock()

	v, err := s.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.generations[stripe] == gen {
		s.cache.SetWithTTL(k, bytes.Clone(v), int64(len(v)), s.ttl)
	}
	s.mu.Unlock()
	return v, nil
}

func (s *Store) Set(ctx context.Context, key core.Key, value []byte) error {
	err := s.next.Set(ctx, key, value)
	s.invalidate(key.String())
	return err
}

func (s *Store) Remove(ctx context.Context, key core.Key) error {
	err := s.next.Remove(ctx, key)
	s.invalidate(key.String())
	return err
}

// invalidate bumps the key's generation and evicts it.
func (s *Store) invalidate(k string) {
	s.mu.Lock()
	s.generations[stripeOf(k)]++
	s.cache.Del(k)
	s.mu.Unlock()
}

func stripeOf(k string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(k))
	return int(h.Sum32() % generationStripes)
}

func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.next.(core.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) Close() {
	s.cache.Close()
}
