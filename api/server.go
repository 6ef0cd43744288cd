/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies
  3. Logging:    Structured request log (zerolog)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the handling UI

ROUTE GROUPS:
  /health                   Liveness
  /api/applications/*       Applications, calculation tables, alterations
  /api/alterations/*        Open handling sessions, cancel
  /api/sessions/*           Handling session form
  /api/calculate            Stateless calculation
  /api/scenarios/*          Demo scenarios (dev only)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

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

	"github.com/citybenefits/recovery-engine/config"
)

// NewRouter creates a new router with all routes configured. An empty
// origins list allows the local development frontends.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = config.DefaultCORSOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Application routes
		r.Route("/applications", func(r chi.Router) {
			r.Get("/", h.ListApplications)
			r.Post("/", h.CreateApplication)
			r.Get("/{id}", h.GetApplication)
			r.Put("/{id}/calculation", h.ReplaceCalculation)
			r.Get("/{id}/alterations", h.ListAlterations)
			r.Post("/{id}/alterations", h.CreateAlteration)
			r.Get("/{id}/disabled-dates", h.GetDisabledDates)
		})

		// Alteration routes
		r.Route("/alterations", func(r chi.Router) {
			r.Post("/{id}/sessions", h.OpenSession)
			r.Post("/{id}/cancel", h.CancelAlteration)
		})

		// Handling session routes
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/{id}", h.GetSession)
			r.Patch("/{id}", h.EditSession)
			r.Delete("/{id}", h.DiscardSession)
			r.Post("/{id}/calculate", h.CalculateSession)
			r.Post("/{id}/submit", h.SubmitSession)
		})

		r.Post("/calculate", h.Calculate)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// loggingMiddleware logs every request with status, size and duration.
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.Log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
