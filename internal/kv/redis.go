package kv

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore serves reads from Redis before the primary store. Batches
// are written to the primary and then evict their keys. If an eviction
// fails the store moves to a new key generation, so entries cached before
// the batch are never read again and expire on their own.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration

	mu  sync.Mutex
	gen string
}

// NewCachedStore caches primary's values in rdb for ttl.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	s := &CachedStore{primary: primary, rdb: rdb, ttl: ttl}
	s.rotate()
	return s
}

func (s *CachedStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	ck := s.cacheKey(key)
	v, err := s.rdb.Get(ctx, ck).Bytes()
	switch {
	case err == nil:
		return v, nil
	case !errors.Is(err, redis.Nil):
		slog.Warn("kv cache get", "key", ck, "err", err)
	}

	v, err = s.primary.Get(ctx, key)
	if err != nil {
		// Missing keys are not cached; the next write would have to evict them.
		return nil, err
	}
	if err := s.rdb.Set(ctx, ck, v, s.ttl).Err(); err != nil {
		slog.Warn("kv cache set", "key", ck, "err", err)
	}
	return v, nil
}

func (s *CachedStore) WriteBatch(ctx context.Context, ops []Op) error {
	if err := s.primary.WriteBatch(ctx, ops); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	evict := make([]string, len(ops))
	for i, op := range ops {
		evict[i] = s.cacheKey(op.Key)
	}
	if err := s.rdb.Del(ctx, evict...).Err(); err != nil {
		gen := s.rotate()
		slog.Warn("kv cache evict failed, new generation", "keys", len(evict), "gen", gen, "err", err)
	}
	return nil
}

// Close closes the primary store and the Redis client.
func (s *CachedStore) Close() error {
	return errors.Join(s.primary.Close(), s.rdb.Close())
}

// rotate starts a new key generation. Generations come from the clock so a
// restarted process does not reuse one.
func (s *CachedStore) rotate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := strconv.FormatInt(time.Now().UnixNano(), 36)
	if next == s.gen {
		next += "."
	}
	s.gen = next
	return next
}

func (s *CachedStore) cacheKey(key []byte) string {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	return "kv:" + gen + ":" + hex.EncodeToString(key)
}
