// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "likebox_reconcile_total",
		Help: "Reconciliation runs by platform, content type and outcome.",
	}, []string{"platform", "kind", "outcome"})

	ReconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "likebox_reconcile_duration_seconds",
		Help:    "Wall time of one reconciliation including the platform fetch.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"kind"})

	ReconcileChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "likebox_reconcile_changes_total",
		Help: "Ids added to or removed from user libraries.",
	}, []string{"kind", "direction"})

	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "likebox_token_refresh_total",
		Help: "Access token refresh attempts by platform and outcome.",
	}, []string{"platform", "outcome"})

	StoreBatchChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "likebox_store_batch_chunks_total",
		Help: "Atomic batch chunks written to the document store.",
	}, []string{"outcome"})

	IndexConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "likebox_index_conflicts_total",
		Help: "Library index writes that lost a version race and were retried.",
	})
)

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeReauth  = "reauth"
	OutcomeSkipped = "skipped"
)
