// Package api provides the HTTP API of the verbete server: huma operations
// mounted on a chi router, every body wrapped in the response envelope.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/verbetes/verbete-server/internal/auth"
	"github.com/verbetes/verbete-server/internal/http/response"
	"github.com/verbetes/verbete-server/internal/metrics"
	"github.com/verbetes/verbete-server/internal/ratelimit"
	"github.com/verbetes/verbete-server/internal/service"
)

// Services groups the business services the API exposes.
type Services struct {
	Submissions *service.SubmissionService
	Catalog     *service.CatalogService
	Fixer       *service.ContentFixer
}

// Options tunes the HTTP surface.
type Options struct {
	Version     string
	CORSOrigins []string
	// RateLimiter throttles requests per client IP. Nil disables limiting.
	RateLimiter *ratelimit.KeyedRateLimiter
	// Now stamps envelopes. Nil means time.Now.
	Now func() time.Time
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services  *Services
	tokens    *auth.TokenService
	router    *chi.Mux
	api       huma.API
	formatter response.Formatter
	limiter   *ratelimit.KeyedRateLimiter
	logger    *slog.Logger
}

// NewServer creates the HTTP server with all routes configured.
func NewServer(services *Services, tokens *auth.TokenService, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	s := &Server{
		services:  services,
		tokens:    tokens,
		router:    chi.NewRouter(),
		formatter: response.NewFormatter(opts.Now),
		limiter:   opts.RateLimiter,
		logger:    logger,
	}

	s.setupMiddleware(opts.CORSOrigins)

	humaConfig := huma.DefaultConfig("Verbete API", opts.Version)
	humaConfig.Info.Description = "Encyclopedia entries: submission workflow, published articles and taxonomy."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	// Bodies go out inside the envelope; drop the $schema links huma would
	// otherwise add to them.
	humaConfig.CreateHooks = nil
	humaConfig.Transformers = append(humaConfig.Transformers, NewEnvelopeTransformer(s.formatter))

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Middleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if s.limiter != nil {
		s.router.Use(ratelimit.Middleware(s.limiter, s.handleRateLimited))
	}
	s.router.Use(middleware.Compress(5))

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.formatter.NotFound(w, "Route not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.formatter.Write(w, http.StatusMethodNotAllowed, s.formatter.Failure("Method not allowed", nil), s.logger)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("Rate limit exceeded",
		"ip", ratelimit.ClientIP(r),
		"path", r.URL.Path,
	)
	s.formatter.TooManyRequests(w, "Too many requests. Please try again later.", s.logger)
}

// setupRoutes registers every operation.
func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", metrics.Handler())

	s.registerHealthRoutes()
	s.registerArticleRoutes()
	s.registerTaxonomyRoutes()
	s.registerSubmissionRoutes()
	s.registerAdminRoutes()
}
