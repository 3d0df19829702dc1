package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize records the size of an HTTP response body.
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

func (r *Registry) IncHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Inc() }

func (r *Registry) DecHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Dec() }

// CacheHit implements cache.Observer.
func (r *Registry) CacheHit(cache string) { r.CacheHitsTotal.WithLabelValues(cache).Inc() }

// CacheMiss implements cache.Observer.
func (r *Registry) CacheMiss(cache string) { r.CacheMissesTotal.WithLabelValues(cache).Inc() }

// CacheEviction implements cache.Observer.
func (r *Registry) CacheEviction(cache string) { r.CacheEvictionsTotal.WithLabelValues(cache).Inc() }

// RecordInvalidation counts a snapshot invalidation.
func (r *Registry) RecordInvalidation(window string) {
	r.CacheInvalidations.WithLabelValues(window).Inc()
}

// RecordNotification counts a received snapshot notification.
func (r *Registry) RecordNotification(window string) {
	r.NotificationsTotal.WithLabelValues(window).Inc()
}

// RecordGraphBuild records a graph construction.
func (r *Registry) RecordGraphBuild(window string, nodes, edges, skipped int, duration time.Duration) {
	r.GraphBuildDuration.Observe(duration.Seconds())
	r.GraphNodes.WithLabelValues(window).Set(float64(nodes))
	r.GraphEdges.WithLabelValues(window).Set(float64(edges))
	if skipped > 0 {
		r.MalformedRecordsTotal.Add(float64(skipped))
	}
}

// RecordCentrality records a centrality run.
func (r *Registry) RecordCentrality(approximate, timedOut bool, duration time.Duration) {
	mode := "exact"
	if approximate {
		mode = "approximate"
		r.CentralityApproximate.Inc()
	}
	if timedOut {
		r.CentralityTimeouts.Inc()
	}
	r.CentralityDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordReport records a report synthesis run.
func (r *Registry) RecordReport(degraded bool, failedModules []string, duration time.Duration) {
	r.ReportDuration.Observe(duration.Seconds())
	if degraded {
		r.ReportsDegradedTotal.Inc()
	}
	for _, m := range failedModules {
		r.ModuleFailuresTotal.WithLabelValues(m).Inc()
	}
}

// RecordQuery records a query service operation. code is empty on success.
func (r *Registry) RecordQuery(operation, code string) {
	if code == "" {
		code = "OK"
	}
	r.QueriesTotal.WithLabelValues(operation, code).Inc()
}

// RecordSourceError counts a record source failure.
func (r *Registry) RecordSourceError(source string) {
	r.SourceErrorsTotal.WithLabelValues(source).Inc()
}

// CompetitionRequest implements competition.Observer.
func (r *Registry) CompetitionRequest(provider, outcome string) {
	r.CompetitionRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// CircuitStateChange implements competition.Observer.
func (r *Registry) CircuitStateChange(name, from, to string) {
	r.CompetitionCircuitState.WithLabelValues(name, from).Set(0)
	r.CompetitionCircuitState.WithLabelValues(name, to).Set(1)
}

// UpdateSystemMetrics refreshes uptime and Go runtime gauges.
func (r *Registry) UpdateSystemMetrics() {
	r.UptimeSeconds.Set(time.Since(r.startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
