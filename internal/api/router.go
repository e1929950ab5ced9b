package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Siteselect/internal/hermes"
)

// Options configures the API router.
type Options struct {
	Defaults           Defaults
	RateLimitPerMinute int
	CORSOrigins        []string
	// Ready, when set, reports whether the aggregate provider's backing
	// store is reachable.
	Ready func(ctx context.Context) error
}

func NewRouter(s Scorer, profiles ProfileSource, events *hermes.Publisher, opts Options, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(RateLimitMiddleware(opts.RateLimitPerMinute))

	analyze := NewAnalyzeHandler(s, profiles, events, opts.Defaults, logger)
	profileHandler := NewProfilesHandler(profiles)
	health := healthHandler(opts.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", analyze.Analyze)
		r.Post("/analyze/batch", analyze.AnalyzeBatch)
		r.Get("/profiles", profileHandler.List)
		r.Get("/profiles/{type}", profileHandler.Get)
		r.Get("/health", health)
	})

	// Legacy routes used by the map frontend.
	r.Post("/api/analyze", analyze.Analyze)
	r.Get("/api/health", health)

	return r
}

func healthHandler(ready func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
