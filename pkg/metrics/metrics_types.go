package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Cache Metrics
	CacheHitsTotal      *prometheus.CounterVec
	CacheMissesTotal    *prometheus.CounterVec
	CacheEvictionsTotal *prometheus.CounterVec
	CacheInvalidations  *prometheus.CounterVec

	// Analytics Metrics
	GraphBuildDuration      prometheus.Histogram
	GraphNodes              *prometheus.GaugeVec
	GraphEdges              *prometheus.GaugeVec
	MalformedRecordsTotal   prometheus.Counter
	CentralityDuration      *prometheus.HistogramVec
	CentralityApproximate   prometheus.Counter
	CentralityTimeouts      prometheus.Counter
	ReportDuration          prometheus.Histogram
	ReportsDegradedTotal    prometheus.Counter
	ModuleFailuresTotal     *prometheus.CounterVec
	QueriesTotal            *prometheus.CounterVec
	SourceErrorsTotal       *prometheus.CounterVec

	// Competition Provider Metrics
	CompetitionRequestsTotal *prometheus.CounterVec
	CompetitionCircuitState  *prometheus.GaugeVec

	// Notification Metrics
	NotificationsTotal *prometheus.CounterVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry  *prometheus.Registry
	startTime time.Time
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry:  reg,
		startTime: time.Now(),
	}

	r.initHTTPMetrics()
	r.initCacheMetrics()
	r.initAnalyticsMetrics()
	r.initCompetitionMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
