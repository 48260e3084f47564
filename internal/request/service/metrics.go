package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks pipeline activity. Registration happens once at
// construction; pass the same instance to every service replica in tests.
type Metrics struct {
	transitions   *prometheus.CounterVec
	conflicts     prometheus.Counter
	feeRecomputes *prometheus.CounterVec
	pickups       *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lingkod_request_transitions_total",
			Help: "Request status transitions by target and outcome",
		}, []string{"target", "outcome"}),
		conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "lingkod_request_version_conflicts_total",
			Help: "Optimistic concurrency conflicts on request writes",
		}),
		feeRecomputes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lingkod_request_fee_recomputes_total",
			Help: "Fee recomputations by result",
		}, []string{"result"}),
		pickups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lingkod_request_pickup_verifications_total",
			Help: "Pickup verification attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) transition(target, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(target, outcome).Inc()
}

func (m *Metrics) conflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Metrics) feeRecompute(result string) {
	if m == nil {
		return
	}
	m.feeRecomputes.WithLabelValues(result).Inc()
}

func (m *Metrics) pickup(outcome string) {
	if m == nil {
		return
	}
	m.pickups.WithLabelValues(outcome).Inc()
}
