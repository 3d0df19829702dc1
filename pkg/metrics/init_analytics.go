package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAnalyticsMetrics() {
	r.GraphBuildDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opportunity_graph_build_duration_seconds",
			Help:    "Graph construction duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	r.GraphNodes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "opportunity_graph_nodes",
			Help: "Nodes in the most recently built graph per window",
		},
		[]string{"window"},
	)

	r.GraphEdges = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "opportunity_graph_edges",
			Help: "Edges in the most recently built graph per window",
		},
		[]string{"window"},
	)

	r.MalformedRecordsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "opportunity_malformed_records_total",
			Help: "Records skipped during graph construction",
		},
	)

	r.CentralityDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opportunity_centrality_duration_seconds",
			Help:    "Centrality computation duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"mode"}, // exact, approximate
	)

	r.CentralityApproximate = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "opportunity_centrality_approximate_total",
			Help: "Centrality runs that used sampled sources",
		},
	)

	r.CentralityTimeouts = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "opportunity_centrality_timeouts_total",
			Help: "Centrality runs stopped by their deadline",
		},
	)

	r.ReportDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opportunity_report_duration_seconds",
			Help:    "Report synthesis duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.ReportsDegradedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "opportunity_reports_degraded_total",
			Help: "Reports produced with at least one module missing",
		},
	)

	r.ModuleFailuresTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opportunity_report_module_failures_total",
			Help: "Report module failures by module",
		},
		[]string{"module"},
	)

	r.QueriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opportunity_queries_total",
			Help: "Query service operations by outcome code",
		},
		[]string{"operation", "code"},
	)

	r.SourceErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opportunity_source_errors_total",
			Help: "Record source failures",
		},
		[]string{"source"},
	)

	r.NotificationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opportunity_snapshot_notifications_total",
			Help: "Snapshot change notifications received",
		},
		[]string{"window"},
	)
}
