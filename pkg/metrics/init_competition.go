package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCompetitionMetrics() {
	r.CompetitionRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opportunity_competition_requests_total",
			Help: "Competition provider requests by outcome",
		},
		[]string{"provider", "outcome"}, // success, failure, rejected
	)

	r.CompetitionCircuitState = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "opportunity_competition_circuit_state",
			Help: "Circuit breaker state (1 for current state, 0 otherwise)",
		},
		[]string{"breaker", "state"}, // closed, half-open, open
	)
}
