// Package router sets up all HTTP routes and middleware chains for the
// blogstats API. Search routes get an extra per-client rate limit.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"blogstats/internal/handlers"
	"blogstats/internal/middleware"
)

// Options configures the middleware stack.
type Options struct {
	RequestTimeout time.Duration
	CORSOrigins    []string
	SearchLimiter  *middleware.RateLimiter // nil disables search rate limiting
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(api *handlers.API, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.APIHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(chimw.Compress(5, "application/json"))
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.Get("/health", api.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", api.Dashboard)

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", api.Stats)
			r.Get("/posts", api.PostTotals)
			r.Get("/monthly", api.Monthly)
		})

		r.Get("/rankings/{kind}", api.Rankings)

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", api.ListPosts)
			r.Get("/top", api.TopPosts)
			r.Get("/popular", api.PopularPosts)
			r.Get("/recent", api.RecentPosts)
			r.Get("/{id}", api.PostDetail)
			r.Get("/{id}/views", api.PostViews)
			r.Get("/{id}/comments", api.PostComments)
		})

		r.Route("/search", func(r chi.Router) {
			if opts.SearchLimiter != nil {
				r.Use(opts.SearchLimiter.Middleware)
			}
			r.Get("/", api.Search)
			r.Get("/all", api.SearchAll)
			r.Get("/suggestions", api.Suggestions)
		})
	})

	return r
}
