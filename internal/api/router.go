package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Bridge diagnostics
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/session", s.handleSession)

		// Appliance endpoints
		r.Route("/appliances", func(r chi.Router) {
			r.Get("/", s.handleListAppliances)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/state", s.handleApplianceState)
				r.Get("/history", s.handleApplianceHistory)
				r.Post("/execute", s.handleExecuteCommand)
			})
		})

		// Cloud proxies (debugging aids)
		r.Get("/cloud/sessions", s.handleCloudSessions)
	})

	return r
}
