package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"assistente-api/internal/middleware"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Auth          *AuthHandler
	Webhook       *WebhookHandler
	Admin         *AdminHandler
	Schedule      *ScheduleHandler
	Health        *HealthHandler
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
}

// NewRouter wires every endpoint. Auth endpoints carry the per-client rate
// limit; the schedule surface additionally sits behind the session guard.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Api-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, nil, "On")
	})
	r.Get("/health", deps.Health.Health)

	r.Route("/auth", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Limit)
		}
		r.Post("/request-otp", deps.Auth.RequestOTP)
		r.Post("/verify-otp", deps.Auth.VerifyOTP)
	})

	r.Post("/webhooks", deps.Webhook.Handle)

	r.Route("/admin", func(r chi.Router) {
		r.Use(deps.Admin.RequireKey)
		r.Post("/users", deps.Admin.CreateUser)
	})

	if deps.Schedule != nil {
		r.With(deps.Authenticator.Guard).Post("/schedule", deps.Schedule.Extract)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Success: false, Error: "method not allowed"})
	})

	return r
}
