package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Planner metrics
// ============================================================

const namespace = "planner"

var (
	SignalsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "signal",
		Name:      "dispatched_total",
		Help:      "Signals delivered to listeners by target kind and signal kind.",
	}, []string{"target", "signal"})

	CacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "relation",
		Name:      "cache_operations_total",
		Help:      "Relationship cache hits, misses and invalidations.",
	}, []string{"relation", "op"})

	CacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "relation",
		Name:      "cache_entries",
		Help:      "Current number of cached entries per relationship.",
	}, []string{"relation"})

	AssociationComputes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "association",
		Name:      "computes_total",
		Help:      "Association computations by type and result.",
	}, []string{"type", "result"})

	RequestOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "txn",
		Name:      "request_operations_total",
		Help:      "Request commit, undo and redo operations by outcome.",
	}, []string{"type", "op", "outcome"})

	SessionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "txn",
		Name:      "session_duration_seconds",
		Help:      "Time from session start to commit or abort.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"outcome"})

	OpenDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "document",
		Name:      "open",
		Help:      "Documents currently held in memory.",
	})
)
