package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/thermlog/internal/auth"
)

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.require(auth.PermLoggingRead)).Group(func(r chi.Router) {
				r.Get("/logging/status", s.handleLoggingStatus)
				r.Get("/participants", s.handleListParticipants)
				r.Get("/participants/{id}", s.handleGetParticipant)
				r.Get("/sampler/status", s.handleSamplerStatus)
				r.Get("/ws", s.handleWebSocket)
			})

			r.With(s.require(auth.PermLoggingOperate)).Group(func(r chi.Router) {
				// Commands are audited by the command recorder with their text.
				r.Post("/command", s.handleCommand)

				r.With(s.auditMiddleware).Group(func(r chi.Router) {
					r.Post("/logging/start", s.handleLoggingStart)
					r.Post("/logging/stop", s.handleLoggingStop)
					r.Put("/logging/routes", s.handleLoggingRoutes)
					r.Put("/logging/interval", s.handleLoggingInterval)
					r.Post("/logging/schedule", s.handleLoggingSchedule)
				})
			})

			r.With(s.require(auth.PermSamplerOperate), s.auditMiddleware).Group(func(r chi.Router) {
				r.Post("/sampler/start", s.handleSamplerStart)
				r.Post("/sampler/stop", s.handleSamplerStop)
			})

			r.With(s.require(auth.PermSystemAdmin)).Get("/audit", s.handleListAudit)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
