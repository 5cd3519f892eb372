/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. zerolog:    Structured request logging
  4. CORS:       Cross-origin requests for the frontend

SECURITY NOTE:
  No authentication middleware; identity arrives asserted in request
  bodies. Authentication is an external collaborator of this core.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/plans", func(r chi.Router) {
			r.Get("/", h.ListPlans)
			r.Post("/", h.CreatePlan)
			r.Get("/{id}", h.GetPlan)
			r.Put("/{id}", h.UpdatePlan)
			r.Delete("/{id}", h.DeletePlan)
			r.Get("/{id}/totals", h.PlanTotals)
			r.Get("/{id}/history", h.PlanHistory)
			r.Post("/{id}/lock", h.LockPlan)
			r.Post("/{id}/unlock", h.UnlockPlan)
			r.Post("/{id}/versions", h.NewPlanVersion)
			r.Post("/{id}/restore", h.RestorePlanVersion)
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", h.ListContracts)
			r.Post("/", h.CreateContract)
			r.Get("/{id}", h.GetContract)
			r.Put("/{id}", h.UpdateContract)
			r.Delete("/{id}", h.DeleteContract)
			r.Get("/{id}/actions", h.ContractActions)
			r.Get("/{id}/history", h.ContractHistory)
			r.Post("/{id}/submit", h.SubmitContract)
			r.Post("/{id}/approve", h.ApproveContract)
			r.Post("/{id}/return", h.ReturnContract)
			r.Post("/{id}/lock", h.LockContract)
			r.Post("/{id}/unlock", h.UnlockContract)
		})
	})

	return r
}

// requestLogger logs one line per request with method, path, status, and
// duration.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
