package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tidewell/catalog-search/pkg/clock"

	"github.com/tidewell/catalog-search/internal/cache"
)

// envelope wraps a cached value with its absolute deadline and sliding
// window so Get can extend the key's redis TTL without ever pushing it past
// the deadline fixed at Set time.
type envelope struct {
	Value    []byte        `json:"v"`
	Absolute time.Time     `json:"abs"`
	Sliding  time.Duration `json:"sliding"`
}

// Store is a Redis-backed implementation of cache.Store.
type Store struct {
	client *redis.Client
	clock  clock.Clock
}

// NewStore creates a Redis-backed cache store.
func NewStore(client *redis.Client, clk clock.Clock) *Store {
	return &Store{
		client: client,
		clock:  clk,
	}
}

// Get returns the value for key, extending its sliding window up to the
// absolute deadline via a capped re-EXPIRE. Absent or expired keys return
// cache.ErrMiss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal cache envelope: %w", err)
	}

	now := s.clock.Now()
	if !now.Before(env.Absolute) {
		// The key TTL should have already evicted it; drop it lazily in case
		// the store clock and ours disagree.
		_ = s.client.Del(ctx, key).Err()
		return nil, cache.ErrMiss
	}

	if env.Sliding > 0 {
		next := env.Sliding
		if remaining := env.Absolute.Sub(now); remaining < next {
			next = remaining
		}
		// Never shorten the remaining TTL, only extend.
		if cur, err := s.client.TTL(ctx, key).Result(); err == nil && next > cur {
			_ = s.client.Expire(ctx, key, next).Err()
		}
	}

	return env.Value, nil
}

// Set stores value under key. The key's initial redis TTL is the sliding
// window (when one is configured and shorter than the absolute TTL); each
// Get then re-extends it, capped by the absolute deadline carried in the
// envelope.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl, sliding time.Duration) error {
	now := s.clock.Now()

	env := envelope{
		Value:    value,
		Absolute: now.Add(ttl),
		Sliding:  sliding,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal cache envelope: %w", err)
	}

	expiry := ttl
	if sliding > 0 && sliding < ttl {
		expiry = sliding
	}

	if err := s.client.Set(ctx, key, data, expiry).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Remove deletes a single key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// RemovePrefix deletes every key under the given prefix using SCAN so large
// namespaces never block the server the way KEYS would.
func (s *Store) RemovePrefix(ctx context.Context, prefix string) error {
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan %q: %w", prefix, err)
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del scanned keys: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping verifies connectivity to the redis server, for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
