// Package api provides the HTTP API server and handlers for Smart Bundles.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/smartbundles/bundles-server/internal/http/response"
	"github.com/smartbundles/bundles-server/internal/ratelimit"
)

// Config holds the HTTP surface settings.
type Config struct {
	Title   string
	Version string

	// CORSOrigins lists storefront origins allowed to call the API.
	// Empty allows any origin.
	CORSOrigins []string

	// RateLimitPerMinute caps requests per client IP. Zero disables limiting.
	RateLimitPerMinute int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	checks   HealthChecks
	cfg      Config
	router   *chi.Mux
	api      huma.API
	limiter  *ratelimit.KeyedRateLimiter
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, checks HealthChecks, cfg Config, logger *slog.Logger) *Server {
	if cfg.Title == "" {
		cfg.Title = "Smart Bundles API"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}

	s := &Server{
		services: services,
		checks:   checks,
		cfg:      cfg,
		router:   chi.NewRouter(),
		logger:   logger,
	}
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.PerMinute(cfg.RateLimitPerMinute)
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig(cfg.Title, cfg.Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	RegisterErrorHandler()
	s.api = humachi.New(s.router, humaConfig)

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources held by middleware.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(RecoverMiddleware(s.logger))

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true, // the cart token travels as a cookie
		MaxAge:           300,
	}))

	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Resource not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, s.logger)
	})
}

// setupRoutes registers every huma operation.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerBundleRoutes()
	s.registerOptionRoutes()
	s.registerProxyRoutes()
	s.registerCartRoutes()
}
