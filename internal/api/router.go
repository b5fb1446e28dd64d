package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter configures the HTTP router
func SetupRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// The event stream must not be buffered by compression or cut by the timeout
	r.Get("/events", handler.HandleEvents)

	r.Group(func(r chi.Router) {
		// Performance middleware
		r.Use(middleware.Compress(5, "application/json")) // Compress JSON responses with level 5 compression
		r.Use(middleware.Timeout(30 * time.Second))

		// Expression analysis
		r.Post("/expressions/analyze", handler.HandleAnalyze)

		// Routes for history management
		r.Route("/history", func(r chi.Router) {
			r.Get("/", handler.HandleHistoryList)
			r.Delete("/", handler.HandleHistoryClear)
			r.Get("/{id}", handler.HandleHistoryGet)
			r.Delete("/{id}", handler.HandleHistoryDelete)
		})

		// Server information routes
		r.Get("/stats", handler.HandleStats)
		r.Get("/health", handler.HandleHealth)
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	})

	// Catch-all route for 404s
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		sendJSONError(w, http.StatusNotFound, "not_found", "Resource not found")
	})

	// Method not allowed handler
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		sendJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	return r
}
