package health

import (
	"context"
	"runtime"
	"time"
)

// SimpleCheck always reports healthy.
func SimpleCheck(name string) CheckFunc {
	return func(context.Context) Check {
		return Check{Name: name, Status: StatusHealthy, LastChecked: time.Now()}
	}
}

// PingCheck reports unhealthy when ping fails. It is used for the record
// source, whose reachability decides readiness.
func PingCheck(name string, ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: name, Status: StatusHealthy, Message: "reachable"}
		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		}
		return check
	}
}

// CircuitCheck reports a circuit breaker. An open breaker degrades the
// service without making it unready: scoring falls back to neutral
// competition.
func CircuitCheck(name string, state func() string) CheckFunc {
	return func(context.Context) Check {
		s := state()
		check := Check{
			Name:    name,
			Status:  StatusHealthy,
			Details: map[string]any{"state": s},
		}
		switch s {
		case "open":
			check.Status = StatusDegraded
			check.Message = "circuit open, using neutral competition"
		case "half-open":
			check.Message = "probing"
		}
		return check
	}
}

// CacheCheck reports cache occupancy. It never fails.
func CacheCheck(name string, stats func() (entries, inFlight int)) CheckFunc {
	return func(context.Context) Check {
		entries, inFlight := stats()
		return Check{
			Name:    name,
			Status:  StatusHealthy,
			Details: map[string]any{"entries": entries, "in_flight": inFlight},
		}
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func(context.Context) Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()
		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		usagePercent := 0.0
		if sys > 0 {
			usagePercent = float64(alloc) / float64(sys) * 100
		}
		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}

// RuntimeMemory reads the Go runtime's heap allocation and system memory.
func RuntimeMemory() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}
