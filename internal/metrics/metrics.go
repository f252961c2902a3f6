// Package metrics holds the Prometheus collectors shared by services and
// handlers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pressroom",
		Name:      "lifecycle_transitions_total",
		Help:      "Article lifecycle transitions by target state.",
	}, []string{"to"})

	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pressroom",
		Name:      "like_toggles_total",
		Help:      "Like toggles by target kind and resulting state.",
	}, []string{"kind", "result"})

	ToggleRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pressroom",
		Name:      "toggle_conflict_retries_total",
		Help:      "Toggles retried after losing a uniqueness race.",
	}, []string{"kind"})

	CounterDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pressroom",
		Name:      "counter_drift_corrected_total",
		Help:      "Denormalized counters overwritten by reconciliation.",
	}, []string{"counter"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pressroom",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
