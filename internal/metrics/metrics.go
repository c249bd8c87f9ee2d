// Package metrics exposes prometheus collectors for the sync core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationList   = "list"

	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeApplied   = "applied"
	OutcomeDiscarded = "discarded"
)

var (
	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_mutations_total",
			Help: "Settled task mutations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	Rollbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_rollbacks_total",
			Help: "Mirror cache restores after a failed mutation",
		},
		[]string{"operation"},
	)

	Refetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_refetches_total",
			Help: "Task list refetches by outcome",
		},
		[]string{"outcome"},
	)

	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todo_remote_call_duration_seconds",
			Help:    "Duration of calls to the task backend",
			Buckets: []float64{0.01, 0.05, 0.1, 0.3, 1, 3},
		},
		[]string{"operation"},
	)

	PendingCreations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "todo_pending_creations",
			Help: "Optimistic tasks waiting for server confirmation",
		},
	)
)

func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func Handler() http.Handler {
	return promhttp.Handler()
}
