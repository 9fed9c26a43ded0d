package cache

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackendDown = errors.New("backend down")

// stubStore scripts Get results per call; writes always succeed.
type stubStore struct {
	getErr   error
	getValue []byte
	getCalls int
}

func (s *stubStore) Get(_ context.Context, _ string) ([]byte, error) {
	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.getValue, nil
}

func (s *stubStore) Set(_ context.Context, _ string, _ []byte, _, _ time.Duration) error {
	return nil
}

func (s *stubStore) Remove(_ context.Context, _ string) error       { return nil }
func (s *stubStore) RemovePrefix(_ context.Context, _ string) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "test-cache",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

func TestBreakerStore_PassThrough(t *testing.T) {
	inner := &stubStore{getValue: []byte("hello")}
	store := NewBreakerStore(inner, testBreakerConfig(), discardLogger())

	got, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
	assert.Equal(t, gobreaker.StateClosed, store.State())
}

func TestBreakerStore_MissIsNotAFailure(t *testing.T) {
	inner := &stubStore{getErr: ErrMiss}
	store := NewBreakerStore(inner, testBreakerConfig(), discardLogger())

	// Far more misses than the trip threshold; the breaker must stay closed.
	for i := 0; i < 20; i++ {
		_, err := store.Get(context.Background(), "k")
		assert.ErrorIs(t, err, ErrMiss)
	}

	assert.Equal(t, gobreaker.StateClosed, store.State())
	assert.Equal(t, 20, inner.getCalls)
}

func TestBreakerStore_TripsOnFailures(t *testing.T) {
	inner := &stubStore{getErr: errBackendDown}
	store := NewBreakerStore(inner, testBreakerConfig(), discardLogger())

	for i := 0; i < 5; i++ {
		_, err := store.Get(context.Background(), "k")
		assert.ErrorIs(t, err, errBackendDown)
	}

	assert.Equal(t, gobreaker.StateOpen, store.State())

	// Open breaker rejects without touching the backend.
	callsBefore := inner.getCalls
	_, err := store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, callsBefore, inner.getCalls)
}

func TestBreakerStore_BelowMinRequestsStaysClosed(t *testing.T) {
	inner := &stubStore{getErr: errBackendDown}
	store := NewBreakerStore(inner, testBreakerConfig(), discardLogger())

	for i := 0; i < 4; i++ {
		_, _ = store.Get(context.Background(), "k")
	}

	assert.Equal(t, gobreaker.StateClosed, store.State())
}

func TestDefaultBreakerConfig(t *testing.T) {
	cfg := DefaultBreakerConfig("catalog-cache")

	assert.Equal(t, "catalog-cache", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.InDelta(t, 0.5, cfg.FailureRatio, 0.001)
}
