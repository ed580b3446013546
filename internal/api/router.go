package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forkful/recommender/internal/config"
	mw "github.com/forkful/recommender/internal/middleware"
)

// HealthChecker is a dependency probed by the readiness endpoint.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) Check(ctx context.Context) error { return f(ctx) }

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	Recommend         http.HandlerFunc
	RecommendationLog http.HandlerFunc

	// Breaker state reporters, e.g. "closed" or "open".
	EmbeddingBreaker  func() string
	CompletionBreaker func() string
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORS               config.CORSConfig
	RecommendRateLimit func(http.Handler) http.Handler

	// Database is required; NATS is nil when events are disabled.
	Database HealthChecker
	NATS     HealthChecker
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORS)))

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe: checks DB and NATS, reports breaker state
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if cfg.Database == nil || cfg.Database.Check(r.Context()) != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if cfg.NATS == nil {
			health["nats"] = "not configured"
		} else if err := cfg.NATS.Check(r.Context()); err != nil {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		// An open breaker degrades answers but the service still responds.
		if h.EmbeddingBreaker != nil {
			health["embedding_breaker"] = h.EmbeddingBreaker()
		}
		if h.CompletionBreaker != nil {
			health["completion_breaker"] = h.CompletionBreaker()
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.RecommendRateLimit != nil {
				r.Use(cfg.RecommendRateLimit)
			}
			r.Post("/recommendations", h.Recommend)
		})
		if h.RecommendationLog != nil {
			r.Get("/recommendations/log", h.RecommendationLog)
		}
	})

	return r
}
