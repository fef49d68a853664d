// Package metrics holds the Prometheus collectors for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the gateway collectors for injection.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RejectionsTotal    *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	CreditsCharged     prometheus.Counter
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the collectors on the given registerer.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_requests_total",
			Help: "Generation requests by terminal outcome.",
		}, []string{"outcome"}),
		RejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_rejections_total",
			Help: "Entitlement rejections by reason (denied demand).",
		}, []string{"reason"}),
		GenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "forge_generation_duration_seconds",
			Help:    "End-to-end provider generation latency.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		CreditsCharged: factory.NewCounter(prometheus.CounterOpts{
			Name: "forge_credits_charged_total",
			Help: "Credits deducted for successful generations.",
		}),
	}
}
