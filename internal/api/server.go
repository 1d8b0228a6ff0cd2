// ABOUTME: HTTP server struct, constructor, and handler wiring.
// ABOUTME: Holds the engine and rate limiter used by the huma handlers.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/intervex/intervex/internal/config"
	"github.com/intervex/intervex/internal/engine"
)

// Server holds the dependencies for the HTTP layer.
type Server struct {
	engine      *engine.Engine
	cfg         *config.Config
	rateLimiter *ipRateLimiter
}

// NewServer creates a Server wired to the given engine.
func NewServer(eng *engine.Engine, cfg *config.Config) *Server {
	evictTTL := cfg.RateLimitEvictTTL
	if evictTTL == 0 {
		evictTTL = 15 * time.Minute
	}
	// 60 requests per minute, burst of 30. Evaluation traffic is bursty when
	// a client fans out over a record batch.
	rl := newIPRateLimiter(rate.Limit(60.0/60), 30, evictTTL)
	return &Server{
		engine:      eng,
		cfg:         cfg,
		rateLimiter: rl,
	}
}

// Handler builds and returns the http.Handler.
func (srv *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// ── Security headers ──────────────────────────────────────────────────────
	// Must be first so they appear on every response including errors.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	})

	// ── Standard chi middleware ───────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// 1 MB global body limit. Evaluation records and question id lists are
	// small; anything bigger is a malformed or hostile request.
	r.Use(middleware.RequestSize(1 << 20))
	r.Use(middleware.Recoverer)

	// ── Infrastructure endpoints ──────────────────────────────────────────────
	r.Get("/healthz", srv.healthzHandler)
	r.Handle("/metrics", promhttp.Handler())

	// ── API v1 sub-router with huma (OpenAPI 3.1) ────────────────────────────
	apiRouter := chi.NewRouter()
	apiRouter.Use(srv.rateLimit())
	humaConfig := huma.DefaultConfig("Intervex API", "0.1.0")
	humaConfig.Info.Description = "Interview combination optimization and trigger evaluation API"
	api := humachi.New(apiRouter, humaConfig)
	registerCombinationRoutes(api, srv)
	registerTriggerRoutes(api, srv)
	registerAdminRoutes(api, srv)

	r.Mount("/api/v1", apiRouter)

	return r
}

// healthResponse is the JSON body for /healthz.
type healthResponse struct {
	Status       string  `json:"status"`
	CacheLatency float64 `json:"cache_latency_ms"`
	Details      string  `json:"details,omitempty"`
}

// healthzHandler reports cache-backend reachability. An unreachable backend
// returns 503, but the API keeps serving in compute-only mode; load balancers
// that route on /healthz should treat 503 here as degraded, not dead.
func (srv *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	h := srv.engine.HealthCheck(r.Context())
	resp := healthResponse{Status: h.Status, CacheLatency: h.LatencyMillis, Details: h.Details}
	statusCode := http.StatusOK
	if h.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "healthz: failed to encode response", "error", err)
	}
}
