package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tidewell/catalog-search/pkg/health"
	"github.com/tidewell/catalog-search/pkg/middleware"

	"github.com/tidewell/catalog-search/internal/service"
)

const serviceName = "catalog-search"

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(
	catalog service.Catalog,
	healthHandler *health.Handler,
	corsCfg middleware.CORSConfig,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware. Tracing runs first so the request log and the
	// request-scoped logger can pick up trace/span ids.
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health and metrics endpoints.
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	// Catalog API endpoints.
	productHandler := NewProductHandler(catalog, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		// The service invalidates its own result cache on every write, so
		// intermediary HTTP caches must not hold responses.
		r.Use(middleware.NoStore())

		r.Get("/", productHandler.SearchProducts)
		r.Get("/{id}", productHandler.GetProduct)
		r.Post("/", productHandler.CreateProduct)
		r.Put("/{id}", productHandler.UpdateProduct)
		r.Delete("/{id}", productHandler.DeleteProduct)
	})

	return r
}
