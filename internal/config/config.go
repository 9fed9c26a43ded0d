package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/tidewell/catalog-search/pkg/config"
	"github.com/tidewell/catalog-search/pkg/database"
)

// Store and cache backend selectors. The memory/memory pairing runs with no
// infrastructure at all, which is the default for local development.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all configuration for the catalog-search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int      `env:"HTTP_PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Catalog store backend: memory | postgres
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`

	// Postgres (used when StoreBackend is postgres)
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"catalog"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Queries slower than this are logged as warnings. Zero disables it.
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Cache backend: memory | redis
	CacheBackend string `env:"CACHE_BACKEND" envDefault:"memory"`

	// Redis (used when CacheBackend is redis)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Cache expiration policy: absolute TTL plus a sliding window capped
	// by the absolute TTL.
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"60s"`
	CacheSliding time.Duration `env:"CACHE_SLIDING_WINDOW" envDefault:"30s"`

	// Kafka
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"false"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Tracing
	TracingEnabled bool   `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog-search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	switch c.StoreBackend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("invalid store backend %q, must be %s or %s", c.StoreBackend, BackendMemory, BackendPostgres)
	}

	switch c.CacheBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("invalid cache backend %q, must be %s or %s", c.CacheBackend, BackendMemory, BackendRedis)
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %s", c.CacheTTL)
	}
	if c.CacheSliding < 0 {
		return fmt.Errorf("cache sliding window must not be negative, got %s", c.CacheSliding)
	}
	if c.CacheSliding > c.CacheTTL {
		return fmt.Errorf("cache sliding window %s must not exceed the absolute TTL %s", c.CacheSliding, c.CacheTTL)
	}

	return nil
}

// PostgresConfig assembles the pool configuration for the postgres backend.
func (c *Config) PostgresConfig() *database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	return &pg
}

// RedisConfig assembles the client configuration for the redis backend.
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
