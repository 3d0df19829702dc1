package health

import (
	"context"
	"sync"
	"time"
)

// Option configures a HealthChecker.
type Option func(*HealthChecker)

// WithCheckTimeout bounds every check.
func WithCheckTimeout(d time.Duration) Option {
	return func(hc *HealthChecker) {
		if d > 0 {
			hc.timeout = d
		}
	}
}

// WithClock overrides the clock used for timestamps and uptime.
func WithClock(now func() time.Time) Option {
	return func(hc *HealthChecker) { hc.now = now }
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(opts ...Option) *HealthChecker {
	hc := &HealthChecker{
		checks:      make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
		liveChecks:  make(map[string]CheckFunc),
		timeout:     DefaultCheckTimeout,
		now:         time.Now,
	}
	for _, o := range opts {
		o(hc)
	}
	hc.started = hc.now()
	return hc
}

// RegisterCheck registers a check reported by the full health endpoint.
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// RegisterReadinessCheck registers a readiness check. Readiness checks are
// also part of the full health report.
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.readyChecks[name] = check
	hc.checks[name] = check
}

// RegisterLivenessCheck registers a liveness check
func (hc *HealthChecker) RegisterLivenessCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.liveChecks[name] = check
}

// Check performs all health checks
func (hc *HealthChecker) Check(ctx context.Context) Response {
	return hc.performChecks(ctx, hc.snapshot(hc.checks))
}

// CheckReadiness performs readiness checks
func (hc *HealthChecker) CheckReadiness(ctx context.Context) Response {
	return hc.performChecks(ctx, hc.snapshot(hc.readyChecks))
}

// CheckLiveness performs liveness checks
func (hc *HealthChecker) CheckLiveness(ctx context.Context) Response {
	return hc.performChecks(ctx, hc.snapshot(hc.liveChecks))
}

func (hc *HealthChecker) snapshot(m map[string]CheckFunc) map[string]CheckFunc {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	out := make(map[string]CheckFunc, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// performChecks runs checks concurrently, each under the check timeout. The
// worst status wins.
func (hc *HealthChecker) performChecks(ctx context.Context, checks map[string]CheckFunc) Response {
	now := hc.now()
	response := Response{
		Status:    StatusHealthy,
		Timestamp: now,
		Checks:    make(map[string]Check, len(checks)),
		Uptime:    now.Sub(hc.started).Seconds(),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, fn := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, hc.timeout)
			defer cancel()

			start := time.Now()
			check := fn(cctx)
			if check.Name == "" {
				check.Name = name
			}
			check.Duration = time.Since(start)
			check.LastChecked = start

			mu.Lock()
			response.Checks[name] = check
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, check := range response.Checks {
		response.Status = worst(response.Status, check.Status)
	}
	return response
}

func worst(a, b Status) Status {
	switch {
	case a == StatusUnhealthy || b == StatusUnhealthy:
		return StatusUnhealthy
	case a == StatusDegraded || b == StatusDegraded:
		return StatusDegraded
	}
	return StatusHealthy
}
