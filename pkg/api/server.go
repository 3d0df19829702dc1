// Package api serves the ranking, quadrant and report queries over HTTP.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/qinglingtaxue/youtube--sub001/pkg/api/middleware"
	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/graphql"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
)

// NewServer creates a new API server
func NewServer(service Service, cfg Config, opts ...Option) (*Server, error) {
	def := DefaultConfig()
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}

	s := &Server{
		service:   service,
		cfg:       cfg,
		logger:    logging.NewNopLogger(),
		startTime: time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With(logging.Component("api"))

	schema, err := graphql.NewSchema(service)
	if err != nil {
		return nil, fmt.Errorf("graphql schema: %w", err)
	}
	executor, err := graphql.NewExecutor(schema, cfg.GraphQLLimits, s.logger)
	if err != nil {
		return nil, fmt.Errorf("graphql executor: %w", err)
	}
	s.graphqlHandler = graphql.NewHandler(executor)

	if cfg.RateLimit > 0 {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit
		if cfg.RateBurst > 0 {
			rl.BurstSize = cfg.RateBurst
		}
		s.rateLimiter = middleware.NewRateLimiter(rl, s.logger)
	}

	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(chimw.RealIP)
	r.Use(middleware.PanicRecovery(s.logger, s.respondError))
	if s.metrics != nil {
		r.Use(middleware.Metrics(s.metrics.recorder))
	}
	r.Use(middleware.Logging(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:         86400,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, errcode.NotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondStatus(w, http.StatusMethodNotAllowed, errcode.InvalidRequest, "method not allowed")
	})

	// Health and metrics stay reachable without credentials.
	if s.healthChecker != nil {
		r.Get("/health", s.healthChecker.HTTPHandler())
		r.Get("/health/live", s.healthChecker.LivenessHandler())
		r.Get("/health/ready", s.healthChecker.ReadinessHandler())
	}
	if s.metrics != nil && s.metrics.handler != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.handler)
	}
	r.Get("/version", s.handleVersion)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIHeaders())
		r.Use(middleware.BodySizeLimit(s.cfg.MaxBodyBytes, s.respondError))
		r.Use(s.requireAuth)
		if s.rateLimiter != nil {
			r.Use(middleware.RateLimit(s.rateLimiter, s.clientID, s.respondError))
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/rankings", s.handleRanking)
			r.Get("/quadrants", s.handleQuadrants)
			r.Get("/report", s.handleReport)
			r.With(s.requireAdmin).Post("/snapshots/{window}/invalidate", s.handleInvalidate)
		})
		r.Method(http.MethodPost, "/graphql", s.graphqlHandler)
	})

	return r
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, VersionResponse{
		Version: s.cfg.Version,
		Started: s.startTime.UTC(),
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}
