// Package api provides the local HTTP server for Blank dashboard widgets.
// It exposes the progression store as a small JSON API plus a WebSocket
// feed of store events.
package api

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/blank-marketing/blank/internal/app/progression"
	"github.com/blank-marketing/blank/internal/health"
	"github.com/blank-marketing/blank/internal/infra/metrics"
)

// HealthReporter is the view of the health checker served on /health.
type HealthReporter interface {
	Statuses() []health.Status
	IsHealthy() bool
}

// Server is the Blank HTTP API server.
type Server struct {
	store          *progression.Store
	hub            *Hub
	health         HealthReporter
	metricsEnabled bool
	corsOrigins    []string
	log            *zap.Logger
}

// NewServer creates a new API server for store. hub may be nil to disable
// the live feed.
func NewServer(store *progression.Store, hub *Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		store: store,
		hub:   hub,
		log:   log.Named("api"),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth sets the checker reported on /health.
func (s *Server) SetHealth(h HealthReporter) { s.health = h }

// SetCORSOrigins sets the browser origins allowed besides the server's own.
// "*" allows any. With none set, only same-origin pages may call the API.
func (s *Server) SetCORSOrigins(origins []string) {
	s.corsOrigins = slices.Clone(origins)
	if s.hub != nil {
		s.hub.SetAllowedOrigins(origins)
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)

		r.Route("/progression", func(r chi.Router) {
			// The live feed is long-lived and must not be cut by the timeout.
			if s.hub != nil {
				r.Get("/live", s.hub.HandleWS)
			}

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))
				r.Use(requireJSON)

				r.Get("/", s.handleView)
				r.Delete("/", s.handleReset)
				r.Get("/rank", s.handleRank)
				r.Get("/missions", s.handleMissions)
				r.Get("/achievements", s.handleAchievements)
				r.Get("/achievements/{id}", s.handleAchievement)
				r.Get("/redemptions", s.handleRedemptions)
				r.Post("/login", s.handleLogin)
				r.Post("/xp", s.handleAwardXP)
				r.Post("/missions/{id}/complete", s.handleCompleteMission)
				r.Post("/rewards/{id}/purchase", s.handlePurchaseReward)
				r.Post("/bonus-analysis/consume", s.handleConsumeBonus)
			})
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}

	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// instrument records request latency by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

// corsMiddleware adds CORS headers for allowed origins. Preflights and
// state-changing requests from any other origin are refused outright;
// reads are served without CORS headers so the browser hides them.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || sameOrigin(origin, r.Host) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		allowed := s.allowOrigin(origin)
		if allowed == "" {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			s.log.Warn("refused cross-origin request",
				zap.String("origin", origin),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path))
			writeError(w, http.StatusForbidden, "origin not allowed")
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", allowed)
		if allowed != "*" {
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin,
// or "" when it is not allowed.
func (s *Server) allowOrigin(origin string) string {
	if slices.Contains(s.corsOrigins, "*") {
		return "*"
	}
	if slices.Contains(s.corsOrigins, origin) {
		return origin
	}
	return ""
}

func sameOrigin(origin, host string) bool {
	u, err := url.Parse(origin)
	return err == nil && u.Host == host
}

// requireJSON rejects state-changing requests that are not declared as
// JSON. Browsers cannot send that content type cross-origin without a
// preflight, which corsMiddleware refuses for unknown origins.
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || ct != "application/json" {
				writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
