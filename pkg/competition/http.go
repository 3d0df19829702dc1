package competition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// Defaults for HTTPConfig.
const (
	DefaultHTTPTimeout      = 5 * time.Second
	DefaultRequestsPerSec   = 10.0
	DefaultFailureThreshold = 5
	DefaultOpenTimeout      = 30 * time.Second
	maxResponseBytes        = 8 << 20
)

// HTTPConfig configures an HTTP provider.
type HTTPConfig struct {
	URL               string
	Timeout           time.Duration
	RequestsPerSecond float64
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold uint32
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
}

// Observer receives provider outcomes: "success", "failure" or "rejected".
type Observer interface {
	CompetitionRequest(provider, outcome string)
	CircuitStateChange(name, from, to string)
}

type levelsRequest struct {
	Window records.TimeWindow `json:"window"`
	IDs    []graph.NodeID     `json:"ids"`
}

type levelsResponse struct {
	Levels map[graph.NodeID]float64 `json:"levels"`
}

// HTTP asks a remote service for competition levels. Requests are rate
// limited and guarded by a circuit breaker.
type HTTP struct {
	cfg      HTTPConfig
	client   *http.Client
	limiter  *rate.Limiter
	cb       *gobreaker.CircuitBreaker[map[graph.NodeID]float64]
	logger   logging.Logger
	observer Observer
}

// HTTPOption configures an HTTP provider.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) HTTPOption {
	return func(h *HTTP) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithObserver sets the outcome observer.
func WithObserver(o Observer) HTTPOption {
	return func(h *HTTP) { h.observer = o }
}

// NewHTTP creates an HTTP provider.
func NewHTTP(cfg HTTPConfig, opts ...HTTPOption) (*HTTP, error) {
	if cfg.URL == "" {
		return nil, errors.New("competition: URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHTTPTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSec
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}

	h := &HTTP{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond))),
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logging.Component("competition"))

	h.cb = gobreaker.NewCircuitBreaker[map[graph.NodeID]float64](gobreaker.Settings{
		Name:        "competition-http",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			h.logger.Info("circuit breaker state transition",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()))
			if h.observer != nil {
				h.observer.CircuitStateChange(name, from.String(), to.String())
			}
		},
	})
	return h, nil
}

func (h *HTTP) Name() string { return "http" }

// State returns the circuit breaker state.
func (h *HTTP) State() gobreaker.State { return h.cb.State() }

func (h *HTTP) Levels(ctx context.Context, window records.TimeWindow, ids []graph.NodeID) (map[graph.NodeID]float64, error) {
	if len(ids) == 0 {
		return map[graph.NodeID]float64{}, nil
	}
	if err := h.limiter.Wait(ctx); err != nil {
		h.record("rejected")
		return nil, fmt.Errorf("competition: rate limit: %w", err)
	}

	levels, err := h.cb.Execute(func() (map[graph.NodeID]float64, error) {
		return h.fetch(ctx, window, ids)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		h.record("rejected")
		return nil, fmt.Errorf("competition: %w", err)
	case err != nil:
		h.record("failure")
		return nil, err
	}
	h.record("success")
	return levels, nil
}

func (h *HTTP) fetch(ctx context.Context, window records.TimeWindow, ids []graph.NodeID) (map[graph.NodeID]float64, error) {
	body, err := json.Marshal(levelsRequest{Window: window, IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("competition: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("competition: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("competition: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("competition: unexpected status %d", resp.StatusCode)
	}
	var out levelsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("competition: decode response: %w", err)
	}
	if out.Levels == nil {
		out.Levels = map[graph.NodeID]float64{}
	}
	return out.Levels, nil
}

func (h *HTTP) record(outcome string) {
	if h.observer != nil {
		h.observer.CompetitionRequest(h.Name(), outcome)
	}
}
