package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event bus metrics
	BusEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qagov_bus_events_total",
			Help: "Total number of bus events by outcome",
		},
		[]string{"outcome"},
	)

	BusQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qagov_bus_queue_depth",
			Help: "Current depth of the event queue",
		},
	)

	// Trust ledger metrics
	TrustMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qagov_trust_mutations_total",
			Help: "Total number of trust score mutations",
		},
		[]string{"event"},
	)

	TrustFlushesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qagov_trust_flushes_total",
			Help: "Total number of snapshot compactions",
		},
	)

	TrustFlushErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qagov_trust_flush_errors_total",
			Help: "Total number of failed snapshot compactions",
		},
	)

	TrustFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qagov_trust_flush_duration_seconds",
			Help:    "Duration of snapshot compaction in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Arbitration metrics
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qagov_arbitration_decisions_total",
			Help: "Total number of arbitration decisions by method",
		},
		[]string{"method"},
	)

	// Drift metrics
	DriftProposalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qagov_drift_proposals_total",
			Help: "Total number of governance amendment proposals by severity",
		},
		[]string{"severity"},
	)
)

// Bus event outcomes used with BusEventsTotal.
const (
	OutcomePublished = "published"
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
)
