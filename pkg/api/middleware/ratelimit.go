package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
)

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// ClientExpiration drops limiters of clients idle this long.
	ClientExpiration time.Duration
	// MaxClients bounds the number of tracked clients. New clients beyond
	// it are rejected until idle ones expire.
	MaxClients int
}

// DefaultRateLimitConfig returns the default limits.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 20,
		BurstSize:         40,
		ClientExpiration:  10 * time.Minute,
		MaxClients:        100000,
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client.
type RateLimiter struct {
	cfg     RateLimitConfig
	logger  logging.Logger
	now     func() time.Time
	mu      sync.Mutex
	clients map[string]*client
	sweep   time.Time
}

// NewRateLimiter creates a limiter. Expired clients are swept lazily on
// access, so no background goroutine is needed.
func NewRateLimiter(cfg RateLimitConfig, logger logging.Logger) *RateLimiter {
	def := DefaultRateLimitConfig()
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = max(1, int(cfg.RequestsPerSecond))
	}
	if cfg.ClientExpiration <= 0 {
		cfg.ClientExpiration = def.ClientExpiration
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RateLimiter{
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow reports whether clientID may make a request now.
func (rl *RateLimiter) Allow(clientID string) bool {
	now := rl.now()

	rl.mu.Lock()
	if now.Sub(rl.sweep) > rl.cfg.ClientExpiration {
		rl.cleanupLocked(now)
		rl.sweep = now
	}
	c, ok := rl.clients[clientID]
	if !ok {
		if rl.cfg.MaxClients > 0 && len(rl.clients) >= rl.cfg.MaxClients {
			rl.mu.Unlock()
			rl.logger.Warn("rate limiter client table full", logging.Int("max_clients", rl.cfg.MaxClients))
			return false
		}
		c = &client{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.BurstSize)}
		rl.clients[clientID] = c
	}
	c.lastSeen = now
	rl.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) cleanupLocked(now time.Time) {
	removed := 0
	for id, c := range rl.clients {
		if now.Sub(c.lastSeen) > rl.cfg.ClientExpiration {
			delete(rl.clients, id)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.Debug("rate limiter cleanup", logging.Count(removed))
	}
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Config returns the limiter configuration.
func (rl *RateLimiter) Config() RateLimitConfig { return rl.cfg }

// ClientIDFunc extracts a client identifier from a request.
type ClientIDFunc func(*http.Request) string

// RemoteIP identifies clients by the host part of RemoteAddr. Behind a
// proxy, install chi's RealIP first.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects requests of clients over their limit with RATE_LIMITED
// and a Retry-After header. A nil limiter disables limiting.
func RateLimit(limiter *RateLimiter, clientID ClientIDFunc, ew ErrorWriter) func(http.Handler) http.Handler {
	if clientID == nil {
		clientID = RemoteIP
	}
	ew = orPlain(ew)
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := clientID(r)
			if !limiter.Allow(id) {
				limiter.logger.Debug("rate limit exceeded",
					logging.String("client", id),
					logging.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "1")
				w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(limiter.cfg.RequestsPerSecond, 'f', -1, 64))
				ew(w, r, errcode.RateLimited, "rate limit exceeded, retry after 1 second")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
