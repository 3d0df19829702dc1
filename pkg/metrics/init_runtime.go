package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "opportunity"

// Request labels. Path is the chi route pattern, never the raw URL.
var (
	requestLabels = []string{"method", "path", "status"}
	sizeLabels    = []string{"method", "path"}
)

// Ranking and report responses stay small; GraphQL reports can reach a
// few hundred kilobytes.
var responseSizeBuckets = prometheus.ExponentialBuckets(256, 4, 7)

func (r *Registry) initHTTPMetrics() {
	factory := promauto.With(r.registry)
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: namespace, Subsystem: "http", Name: name, Help: help}
	}

	r.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts(opts("requests_total", "HTTP requests by route and status")),
		requestLabels)
	r.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts(opts("requests_in_flight", "HTTP requests being served")))

	r.HTTPRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status",
		Buckets:   prometheus.DefBuckets,
	}, requestLabels)
	r.HTTPResponseSizeBytes = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response body size by route",
		Buckets:   responseSizeBuckets,
	}, sizeLabels)
}

func (r *Registry) initSystemMetrics() {
	factory := promauto.With(r.registry)
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	r.UptimeSeconds = gauge("uptime_seconds", "Seconds since the process started")
	r.GoRoutines = gauge("goroutines", "Live goroutines, centrality workers included")
	r.MemoryAllocBytes = gauge("memory_alloc_bytes", "Heap bytes allocated, cached graphs included")
	r.MemorySysBytes = gauge("memory_sys_bytes", "Bytes obtained from the OS")
}
