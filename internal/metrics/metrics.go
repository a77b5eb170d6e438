// Package metrics provides Prometheus metrics for the job lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal counts transition attempts.
	// Labels: to (target status), result (ok, forbidden, invalid_transition, checklist_incomplete, error)
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobline",
			Subsystem: "engine",
			Name:      "transitions_total",
			Help:      "Total number of job status transition attempts",
		},
		[]string{"to", "result"},
	)

	// ChecklistTogglesTotal counts checklist item toggles.
	ChecklistTogglesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jobline",
			Subsystem: "engine",
			Name:      "checklist_toggles_total",
			Help:      "Total number of checklist item toggles",
		},
	)

	// AccessTokensTotal counts magic link operations.
	// Labels: op (issue, validate), result (ok, invalid, forbidden, error)
	AccessTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobline",
			Subsystem: "magiclink",
			Name:      "operations_total",
			Help:      "Total number of access token issue and validate operations",
		},
		[]string{"op", "result"},
	)

	// MaterialSuggestDuration tracks material suggestion latency.
	// Labels: result (ok, degraded)
	MaterialSuggestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jobline",
			Subsystem: "materials",
			Name:      "suggest_duration_seconds",
			Help:      "Duration of material suggestion calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// ExportsTotal counts report exports.
	// Labels: kind (bank, insurance), result (uploaded, inline, error)
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobline",
			Subsystem: "report",
			Name:      "exports_total",
			Help:      "Total number of report export payloads built",
		},
		[]string{"kind", "result"},
	)

	// WebhookDeliveriesTotal counts webhook deliveries.
	// Labels: result (ok, error)
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobline",
			Subsystem: "webhooks",
			Name:      "deliveries_total",
			Help:      "Total number of webhook delivery attempts",
		},
		[]string{"result"},
	)
)
