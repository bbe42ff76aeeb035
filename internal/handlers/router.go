package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"whiteboard/internal/middleware"
)

type RouterOptions struct {
	RequestTimeout time.Duration
	RateLimits     middleware.RateLimits
	AllowedOrigins []string
}

func NewRouter(h *Handler, tokens middleware.TokenValidator, opts RouterOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(opts.RequestTimeout))
	r.Use(middleware.RateLimit(opts.RateLimits))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/groups", h.ListGroups)  // GET /api/groups
		r.Get("/users", h.ListUsers)    // GET /api/users
		r.Get("/logs", h.ListActivity)  // GET /api/logs
		r.Post("/login", h.Login)       // POST /api/login
		r.Post("/register", h.Register) // POST /api/register

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokens))

			r.Post("/groups", h.CreateGroup)        // POST /api/groups
			r.Patch("/groups/{id}", h.RenameGroup)  // PATCH /api/groups/{id}
			r.Delete("/groups/{id}", h.DeleteGroup) // DELETE /api/groups/{id}

			r.Post("/tasks", h.CreateTask)                          // POST /api/tasks
			r.Patch("/tasks/{id}", h.UpdateTask)                    // PATCH /api/tasks/{id}
			r.Delete("/tasks/{id}", h.DeleteTask)                   // DELETE /api/tasks/{id}
			r.Post("/tasks/{id}/auto-complete", h.AutoCompleteTask) // POST /api/tasks/{id}/auto-complete

			r.Patch("/users/status", h.UpdateStatus) // PATCH /api/users/status
			r.Patch("/users/{id}", h.UpdateUser)     // PATCH /api/users/{id}
			r.Delete("/users/{id}", h.DeleteUser)    // DELETE /api/users/{id}
		})
	})

	return otelhttp.NewHandler(r, "whiteboard-api")
}
