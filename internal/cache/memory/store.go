package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tidewell/catalog-search/pkg/clock"

	"github.com/tidewell/catalog-search/internal/cache"
)

type entry struct {
	value    []byte
	expires  time.Time
	absolute time.Time
	sliding  time.Duration
}

// Store is an in-memory implementation of cache.Store. Expired entries are
// dropped lazily on Get and periodically by a janitor goroutine. Thread-safe
// via sync.Mutex.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	clock   clock.Clock
	done    chan struct{}
	once    sync.Once
}

// New creates an in-memory cache store. When janitorInterval is positive a
// background goroutine sweeps expired entries at that interval until Close
// is called.
func New(clk clock.Clock, janitorInterval time.Duration) *Store {
	s := &Store{
		entries: make(map[string]entry),
		clock:   clk,
		done:    make(chan struct{}),
	}

	if janitorInterval > 0 {
		go s.janitor(janitorInterval)
	}

	return s
}

// Get returns the value for key, extending its sliding window up to the
// absolute deadline. Absent or expired keys return cache.ErrMiss.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, cache.ErrMiss
	}

	now := s.clock.Now()
	if !now.Before(e.expires) {
		delete(s.entries, key)
		return nil, cache.ErrMiss
	}

	if e.sliding > 0 {
		extended := now.Add(e.sliding)
		if extended.After(e.absolute) {
			extended = e.absolute
		}
		if extended.After(e.expires) {
			e.expires = extended
			s.entries[key] = e
		}
	}

	// Copy so callers cannot mutate the cached bytes.
	value := make([]byte, len(e.value))
	copy(value, e.value)

	return value, nil
}

// Set stores value under key with the given absolute TTL and sliding window.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl, sliding time.Duration) error {
	now := s.clock.Now()

	e := entry{
		value:    make([]byte, len(value)),
		absolute: now.Add(ttl),
		sliding:  sliding,
	}
	copy(e.value, value)

	e.expires = e.absolute
	if sliding > 0 && sliding < ttl {
		e.expires = now.Add(sliding)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = e
	return nil
}

// Remove deletes a single key.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// RemovePrefix deletes every key under the given prefix.
func (s *Store) RemovePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}

// Len returns the number of live (non-expired) entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	n := 0
	for _, e := range s.entries {
		if now.Before(e.expires) {
			n++
		}
	}
	return n
}

// Close stops the janitor goroutine. Safe to call more than once.
func (s *Store) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *Store) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for key, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, key)
		}
	}
}
