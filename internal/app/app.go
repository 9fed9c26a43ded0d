package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tidewell/catalog-search/pkg/clock"
	"github.com/tidewell/catalog-search/pkg/database"
	"github.com/tidewell/catalog-search/pkg/health"
	pkgkafka "github.com/tidewell/catalog-search/pkg/kafka"
	"github.com/tidewell/catalog-search/pkg/middleware"
	"github.com/tidewell/catalog-search/pkg/tracing"

	"github.com/tidewell/catalog-search/internal/cache"
	memorycache "github.com/tidewell/catalog-search/internal/cache/memory"
	rediscache "github.com/tidewell/catalog-search/internal/cache/redis"
	"github.com/tidewell/catalog-search/internal/config"
	"github.com/tidewell/catalog-search/internal/event"
	handler "github.com/tidewell/catalog-search/internal/handler/http"
	"github.com/tidewell/catalog-search/internal/repository"
	memoryrepo "github.com/tidewell/catalog-search/internal/repository/memory"
	postgresrepo "github.com/tidewell/catalog-search/internal/repository/postgres"
	"github.com/tidewell/catalog-search/internal/repository/postgres/migrations"
	"github.com/tidewell/catalog-search/internal/service"
)

const memoryCacheJanitorInterval = time.Minute

// App wires together all dependencies and runs the catalog-search service.
// The cache store is constructed here and handed to the decorator by
// reference; nothing else owns or reaches into it.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	rdb             *redis.Client
	memCache        *memorycache.Store
	producer        *pkgkafka.Producer
	tracingShutdown func(context.Context) error
	httpServer      *http.Server
}

// NewApp creates a new application instance, initializing all dependencies
// according to the configured backends.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	clk := clock.RealClock{}
	healthHandler := health.NewHandler()

	// Tracing.
	if cfg.TracingEnabled {
		tcfg := tracing.DefaultConfig("catalog-search")
		tcfg.OTLPEndpoint = cfg.OTLPEndpoint
		tcfg.Environment = cfg.Environment
		tcfg.Enabled = true

		shutdown, err := tracing.InitTracer(ctx, tcfg)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		a.tracingShutdown = shutdown
		logger.Info("tracing initialized", slog.String("endpoint", cfg.OTLPEndpoint))
	}

	// Catalog store.
	var repo repository.ProductRepository
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := database.NewPostgresPoolWithLogger(ctx, cfg.PostgresConfig(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool

		if err := database.RunMigrations(ctx, pool, migrations.Files, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}

		database.RegisterPoolMetrics(pool, "catalog-search")

		if cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
		}
		healthHandler.Register("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})

		repo = postgresrepo.NewProductRepository(pool)
		logger.Info("postgres catalog store initialized",
			slog.String("host", cfg.PostgresHost),
			slog.String("database", cfg.PostgresDB),
		)
	default:
		repo = memoryrepo.NewProductRepository()
		logger.Info("in-memory catalog store initialized")
	}

	// Cache store. The service stays up when the cache is down, so the
	// cache health check is non-critical.
	var store cache.Store
	switch cfg.CacheBackend {
	case config.BackendRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.RedisConfig())
		if err != nil {
			a.closePartial()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb

		redisStore := rediscache.NewStore(rdb, clk)
		healthHandler.RegisterNonCritical("redis", redisStore.Ping)

		store = redisStore
		logger.Info("redis cache store initialized",
			slog.String("addr", cfg.RedisConfig().Addr()),
			slog.Int("db", cfg.RedisDB),
		)
	default:
		a.memCache = memorycache.New(clk, memoryCacheJanitorInterval)
		store = a.memCache
		logger.Info("in-memory cache store initialized")
	}

	store = cache.NewBreakerStore(store, cache.DefaultBreakerConfig("catalog-cache"), logger)

	// Events.
	var events service.EventPublisher
	if cfg.EventsEnabled {
		kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
		a.producer = pkgkafka.NewProducer(kafkaCfg, logger)

		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})

		events = event.NewProducer(a.producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph: catalog service wrapped by the caching
	// decorator, both behind the same Catalog contract.
	catalog := service.NewCatalogService(repo, events, logger)
	cached := service.NewCachedCatalog(catalog, store, clk, cfg.CacheTTL, cfg.CacheSliding, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.AllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(cached, healthHandler, corsCfg, logger, cfg.PprofAllowedCIDRs)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("store_backend", a.cfg.StoreBackend),
			slog.String("cache_backend", a.cfg.CacheBackend),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.memCache != nil {
		a.memCache.Close()
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	if a.tracingShutdown != nil {
		if err := a.tracingShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closePartial releases resources acquired before a constructor failure.
func (a *App) closePartial() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.memCache != nil {
		a.memCache.Close()
	}
}
