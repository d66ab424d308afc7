package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"infinite-experiment/dispatchboard/internal/api"
	"infinite-experiment/dispatchboard/internal/auth"
	"infinite-experiment/dispatchboard/internal/logging"
	"infinite-experiment/dispatchboard/internal/metrics"
	"infinite-experiment/dispatchboard/internal/middleware"
)

// RouterDeps is everything the router wires into handlers and middleware.
type RouterDeps struct {
	API      *api.Dependencies
	Metrics  *metrics.MetricsRegistry
	Gatherer prometheus.Gatherer
	Signer   *auth.TokenSigner
	DB       *sqlx.DB
	Redis    *redis.Client
	UpSince  time.Time
}

func RegisterRoutes(d RouterDeps) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(d.Metrics))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:8081"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	logging.Info("Router initialized with metrics and logging middleware")

	r.Get("/healthCheck", api.HealthCheckHandler(d.DB, d.Redis, d.API.Services.Dispatch, d.UpSince))
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	handlers := api.NewHandlers(d.API)
	RegisterAPIRoutes(r, handlers, d.Signer, middleware.NewRateLimiter(5, 20))

	return r
}
