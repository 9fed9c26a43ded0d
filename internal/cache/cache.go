// Package cache defines the key-value contract the caching decorator
// consumes, the canonical cache-key encoding, and a circuit-breaker wrapper
// that keeps a failing backend from slowing every request down.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired. It is the
// only Get error the decorator treats as a normal outcome; anything else
// means the store itself is unhealthy.
var ErrMiss = errors.New("cache: miss")

// Store is the minimal key-value contract for cache backends. Entries carry
// an absolute TTL plus an optional sliding window: each Get extends the
// entry's life to now+sliding, capped by the absolute deadline set at Set
// time. A sliding window of zero disables extension.
//
// Implementations must be safe for concurrent use without external locking.
type Store interface {
	// Get returns the stored value, extending the sliding window.
	// Returns ErrMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value with an absolute TTL and a sliding window.
	Set(ctx context.Context, key string, value []byte, ttl, sliding time.Duration) error

	// Remove deletes a single key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// RemovePrefix deletes every key under the given prefix.
	RemovePrefix(ctx context.Context, prefix string) error
}
