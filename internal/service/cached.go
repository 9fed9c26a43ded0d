package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tidewell/catalog-search/pkg/clock"
	"github.com/tidewell/catalog-search/pkg/pagination"

	"github.com/tidewell/catalog-search/internal/cache"
	"github.com/tidewell/catalog-search/internal/domain"
)

var (
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total cache hits by namespace",
		},
		[]string{"namespace"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total cache misses by namespace",
		},
		[]string{"namespace"},
	)

	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_errors_total",
			Help: "Total cache store errors recovered by falling through, by operation",
		},
		[]string{"operation"},
	)

	cacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_invalidations_total",
			Help: "Total search-namespace invalidation sweeps triggered by writes",
		},
	)

	cacheSearchKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_cache_search_keys",
			Help: "Number of live search-result keys tracked by the decorator",
		},
	)
)

// CachedCatalog is a read-through caching decorator around any Catalog
// implementation. Searches and single-item lookups are memoized under the
// "search:" and "item:" namespaces; every write delegates to the inner
// catalog first, then removes the affected item entry and sweeps the whole
// search namespace. The sweep is deliberately coarse: any write can change
// the membership, ordering, or counts of any search result.
//
// The decorator tracks its own side-index of live search keys, so the
// fallback sweep never depends on introspecting the store. Cache failures
// are logged and recovered by computing fresh data; they never reach the
// caller. If an invalidation cannot be completed, cache reads are suspended
// for one absolute-TTL window so every entry that survived the failed sweep
// is past expiry before reads resume.
type CachedCatalog struct {
	inner   Catalog
	store   cache.Store
	clock   clock.Clock
	ttl     time.Duration
	sliding time.Duration
	logger  *slog.Logger

	mu             sync.Mutex
	searchKeys     map[string]time.Time // key -> absolute expiry
	suspendedUntil time.Time
}

// Default expiration policy for cached results.
const (
	DefaultCacheTTL     = 60 * time.Second
	DefaultCacheSliding = 30 * time.Second
)

// NewCachedCatalog wraps inner with a read-through cache. ttl is the
// absolute entry lifetime; sliding is the per-access extension window,
// capped by ttl.
func NewCachedCatalog(inner Catalog, store cache.Store, clk clock.Clock, ttl, sliding time.Duration, logger *slog.Logger) *CachedCatalog {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if sliding < 0 {
		sliding = 0
	}
	if sliding > ttl {
		sliding = ttl
	}

	return &CachedCatalog{
		inner:      inner,
		store:      store,
		clock:      clk,
		ttl:        ttl,
		sliding:    sliding,
		logger:     logger,
		searchKeys: make(map[string]time.Time),
	}
}

// Search returns the cached result for the criteria when present, computing
// and storing it otherwise. Criteria are normalized before key derivation
// so equivalent raw queries share one entry.
func (s *CachedCatalog) Search(ctx context.Context, criteria domain.SearchCriteria) (pagination.Result[domain.ProductView], error) {
	c := criteria.Normalize()
	key := cache.SearchKey(c)

	if s.readable() {
		data, err := s.store.Get(ctx, key)
		switch {
		case err == nil:
			var result pagination.Result[domain.ProductView]
			if err := json.Unmarshal(data, &result); err == nil {
				cacheHits.WithLabelValues("search").Inc()
				return result, nil
			}
			// A corrupt entry is treated as a miss; it will be overwritten below.
			s.logger.WarnContext(ctx, "corrupt search cache entry",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		case errors.Is(err, cache.ErrMiss):
			cacheMisses.WithLabelValues("search").Inc()
		default:
			cacheErrors.WithLabelValues("get").Inc()
			s.logger.WarnContext(ctx, "cache get failed, computing fresh",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	result, err := s.inner.Search(ctx, c)
	if err != nil {
		return pagination.Result[domain.ProductView]{}, err
	}

	s.put(ctx, key, result, true)

	return result, nil
}

// GetByID returns the cached product view when present, looking it up
// otherwise. NotFound results are not cached.
func (s *CachedCatalog) GetByID(ctx context.Context, id string) (*domain.ProductView, error) {
	key := cache.ItemKey(id)

	if s.readable() {
		data, err := s.store.Get(ctx, key)
		switch {
		case err == nil:
			var view domain.ProductView
			if err := json.Unmarshal(data, &view); err == nil {
				cacheHits.WithLabelValues("item").Inc()
				return &view, nil
			}
			s.logger.WarnContext(ctx, "corrupt item cache entry",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		case errors.Is(err, cache.ErrMiss):
			cacheMisses.WithLabelValues("item").Inc()
		default:
			cacheErrors.WithLabelValues("get").Inc()
			s.logger.WarnContext(ctx, "cache get failed, computing fresh",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	view, err := s.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.put(ctx, key, view, false)

	return view, nil
}

// Create delegates to the inner catalog and sweeps the search namespace.
// There is no prior item entry for a new id, so only searches are swept.
func (s *CachedCatalog) Create(ctx context.Context, input *CreateProductInput) (*domain.ProductView, error) {
	view, err := s.inner.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	s.invalidateSearches(ctx)

	return view, nil
}

// Update delegates to the inner catalog, then removes the item entry and
// sweeps the search namespace before returning.
func (s *CachedCatalog) Update(ctx context.Context, id string, input *UpdateProductInput) (*domain.ProductView, error) {
	view, err := s.inner.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}

	s.removeItem(ctx, id)
	s.invalidateSearches(ctx)

	return view, nil
}

// Delete delegates to the inner catalog, then removes the item entry and
// sweeps the search namespace before returning.
func (s *CachedCatalog) Delete(ctx context.Context, id string) error {
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}

	s.removeItem(ctx, id)
	s.invalidateSearches(ctx)

	return nil
}

// put marshals and stores a computed value, tracking search keys in the
// side-index. Storage failures are logged, never propagated.
func (s *CachedCatalog) put(ctx context.Context, key string, value any, isSearch bool) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.WarnContext(ctx, "marshal cache value failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.store.Set(ctx, key, data, s.ttl, s.sliding); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		s.logger.WarnContext(ctx, "cache set failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}

	if isSearch {
		s.trackSearchKey(key)
	}
}

// removeItem drops the single-item entry for id. A failed removal leaves a
// potentially stale entry behind, so reads are suspended until that entry
// must have expired.
func (s *CachedCatalog) removeItem(ctx context.Context, id string) {
	key := cache.ItemKey(id)
	if err := s.store.Remove(ctx, key); err != nil {
		cacheErrors.WithLabelValues("remove").Inc()
		s.logger.WarnContext(ctx, "cache remove failed, suspending cache reads",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		s.suspend()
	}
}

// invalidateSearches sweeps every entry under the search namespace. The
// store's prefix removal is tried first; if it fails, the side-index
// snapshot drives per-key removal, and if that fails too, reads are
// suspended for one absolute-TTL window. Item entries are never touched.
func (s *CachedCatalog) invalidateSearches(ctx context.Context) {
	cacheInvalidations.Inc()

	if err := s.store.RemovePrefix(ctx, cache.SearchNamespace); err != nil {
		cacheErrors.WithLabelValues("remove_prefix").Inc()
		s.logger.WarnContext(ctx, "namespace sweep failed, falling back to per-key removal",
			slog.String("prefix", cache.SearchNamespace),
			slog.String("error", err.Error()),
		)

		failed := false
		for _, key := range s.snapshotSearchKeys() {
			if err := s.store.Remove(ctx, key); err != nil {
				failed = true
				cacheErrors.WithLabelValues("remove").Inc()
				s.logger.WarnContext(ctx, "per-key sweep removal failed",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			}
		}
		if failed {
			s.suspend()
		}
	}

	s.mu.Lock()
	s.searchKeys = make(map[string]time.Time)
	s.mu.Unlock()
	cacheSearchKeys.Set(0)
}

// readable reports whether cache reads are currently allowed.
func (s *CachedCatalog) readable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.clock.Now().Before(s.suspendedUntil)
}

// suspend blocks cache reads for one absolute-TTL window, bounding the
// staleness any entry that survived a failed invalidation can cause.
func (s *CachedCatalog) suspend() {
	until := s.clock.Now().Add(s.ttl)

	s.mu.Lock()
	if until.After(s.suspendedUntil) {
		s.suspendedUntil = until
	}
	s.mu.Unlock()

	s.logger.Warn("cache reads suspended",
		slog.Time("until", until),
	)
}

func (s *CachedCatalog) trackSearchKey(key string) {
	now := s.clock.Now()

	s.mu.Lock()
	s.searchKeys[key] = now.Add(s.ttl)
	for k, exp := range s.searchKeys {
		if !now.Before(exp) {
			delete(s.searchKeys, k)
		}
	}
	n := len(s.searchKeys)
	s.mu.Unlock()

	cacheSearchKeys.Set(float64(n))
}

func (s *CachedCatalog) snapshotSearchKeys() []string {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.searchKeys))
	for k, exp := range s.searchKeys {
		if now.Before(exp) {
			keys = append(keys, k)
		}
	}
	return keys
}
