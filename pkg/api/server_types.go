package api

import (
	"context"
	"net/http"
	"time"

	"github.com/qinglingtaxue/youtube--sub001/pkg/api/middleware"
	"github.com/qinglingtaxue/youtube--sub001/pkg/auth"
	"github.com/qinglingtaxue/youtube--sub001/pkg/graphql"
	"github.com/qinglingtaxue/youtube--sub001/pkg/health"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// Service is the query surface the API serves. *analytics.Service
// implements it.
type Service interface {
	graphql.Querier
	Invalidate(window records.TimeWindow) int
	InvalidateAll() int
}

// Config tunes the HTTP surface.
type Config struct {
	Version string
	// CORSOrigins lists the origins allowed to call the API; empty disables
	// cross-origin requests.
	CORSOrigins  []string
	MaxBodyBytes int64
	// RateLimit is the per-client request rate; zero disables limiting.
	RateLimit     float64
	RateBurst     int
	GraphQLLimits graphql.Limits
	// RequestTimeout bounds each API request; zero means none.
	RequestTimeout time.Duration
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	rl := middleware.DefaultRateLimitConfig()
	return Config{
		Version:        "dev",
		MaxBodyBytes:   1 << 20,
		RateLimit:      rl.RequestsPerSecond,
		RateBurst:      rl.BurstSize,
		GraphQLLimits:  graphql.DefaultLimits(),
		RequestTimeout: 30 * time.Second,
	}
}

// Server represents the HTTP API server
type Server struct {
	service        Service
	cfg            Config
	graphqlHandler *graphql.Handler
	validator      auth.TokenValidator // nil disables authentication
	healthChecker  *health.HealthChecker
	metrics        *metricsBinding
	rateLimiter    *middleware.RateLimiter
	logger         logging.Logger
	startTime      time.Time
	router         http.Handler
}

// metricsBinding pairs the request recorder with the scrape handler.
type metricsBinding struct {
	recorder middleware.MetricsRecorder
	handler  http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAuth enables bearer-token authentication on the API routes.
func WithAuth(v auth.TokenValidator) Option {
	return func(s *Server) { s.validator = v }
}

// WithHealth serves the checker on /health, /health/live and /health/ready.
func WithHealth(hc *health.HealthChecker) Option {
	return func(s *Server) { s.healthChecker = hc }
}

// WithMetrics records request metrics and serves handler on /metrics.
func WithMetrics(recorder middleware.MetricsRecorder, handler http.Handler) Option {
	return func(s *Server) { s.metrics = &metricsBinding{recorder: recorder, handler: handler} }
}

// requestContext bounds a request by the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
}
