package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/privatepub/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.accessLogMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware(newCORSPolicy(s.cfg.CORS)))
	r.Use(limitBody(maxRequestBodySize))

	// Prometheus scrape target (no auth, like health)
	r.Get("/metrics", s.handlePrometheus)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/subscriptions", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermTicketIssue)).Post("/", s.handleSignSubscription)
				r.With(s.requirePermission(auth.PermTicketVerify)).Post("/verify", s.handleVerifySubscription)
			})

			r.With(s.requirePermission(auth.PermPublish)).Post("/publish", s.handlePublish)

			r.Route("/broker", func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermBrokerConnect))
				r.Get("/options", s.handleBrokerOptions)
				r.Get("/ws", s.handleBrokerSocket)
			})

			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAuditLogs)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handlePrometheus serves the metrics registry.
func (s *Server) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeNotConfigured(w, "metrics not configured")
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}
