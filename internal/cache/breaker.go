package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig holds circuit breaker settings for the cache store.
type BreakerConfig struct {
	// Name identifies this breaker (used in metrics and logs).
	Name string

	// MaxRequests is the maximum number of requests allowed in the half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing internal counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio is the ratio of failures to total requests that trips the breaker.
	FailureRatio float64

	// MinRequests is the minimum number of requests needed before the failure ratio is evaluated.
	MinRequests uint32
}

// DefaultBreakerConfig returns sensible defaults for the cache breaker.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var breakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "cache_circuit_breaker_state",
		Help: "Current state of the cache circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// BreakerStore wraps a Store with a circuit breaker so an unreachable cache
// backend degrades to fast pass-through errors instead of a per-request
// timeout. A miss is a successful call; only store failures count toward
// tripping the breaker.
type BreakerStore struct {
	inner   Store
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
}

// NewBreakerStore wraps the given store with circuit breaker protection.
func NewBreakerStore(inner Store, cfg BreakerConfig, logger *slog.Logger) *BreakerStore {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMiss)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	breakerState.WithLabelValues(cfg.Name).Set(stateToFloat(gobreaker.StateClosed))

	return &BreakerStore{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:  logger,
	}
}

// Get retrieves a value through the breaker.
func (s *BreakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.breaker.Execute(func() ([]byte, error) {
		return s.inner.Get(ctx, key)
	})
}

// Set stores a value through the breaker.
func (s *BreakerStore) Set(ctx context.Context, key string, value []byte, ttl, sliding time.Duration) error {
	_, err := s.breaker.Execute(func() ([]byte, error) {
		return nil, s.inner.Set(ctx, key, value, ttl, sliding)
	})
	return err
}

// Remove deletes a key through the breaker.
func (s *BreakerStore) Remove(ctx context.Context, key string) error {
	_, err := s.breaker.Execute(func() ([]byte, error) {
		return nil, s.inner.Remove(ctx, key)
	})
	return err
}

// RemovePrefix deletes a namespace through the breaker.
func (s *BreakerStore) RemovePrefix(ctx context.Context, prefix string) error {
	_, err := s.breaker.Execute(func() ([]byte, error) {
		return nil, s.inner.RemovePrefix(ctx, prefix)
	})
	return err
}

// State returns the current breaker state.
func (s *BreakerStore) State() gobreaker.State {
	return s.breaker.State()
}
