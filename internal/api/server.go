// Package api provides the HTTP API server and handlers for the Dishplay resolution service.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dishplayapp/dishplay-server/internal/http/response"
	"github.com/dishplayapp/dishplay-server/internal/media/images"
	"github.com/dishplayapp/dishplay-server/internal/service"
	"github.com/dishplayapp/dishplay-server/internal/validation"
)

// Services bundles the business services the handlers depend on.
type Services struct {
	Resolution *service.ResolutionService
	Unmatched  *service.UnmatchedService
	Cache      *service.CacheService
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services     *Services
	imageStorage *images.Storage
	validator    *validation.Validator
	router       *chi.Mux
	logger       *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// imageStorage may be nil; the image endpoint then responds 404.
func NewServer(services *Services, imageStorage *images.Storage, logger *slog.Logger) *Server {
	s := &Server{
		services:     services,
		imageStorage: imageStorage,
		validator:    validation.New(),
		router:       chi.NewRouter(),
		logger:       logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/resolve", s.handleResolve)
		r.Post("/resolve/batch", s.handleResolveBatch)

		r.Route("/unmatched", func(r chi.Router) {
			r.Get("/", s.handleListUnmatched)
			r.Delete("/{id}", s.handleDeleteUnmatched)
		})

		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", s.handleCacheStats)
			r.Delete("/", s.handleClearCache)
		})

		r.Get("/images/{id}", s.handleGetImage)
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
