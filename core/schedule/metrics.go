package schedule

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsCreated       *prometheus.CounterVec
	runTransitions    *prometheus.CounterVec
	dispatchConflicts prometheus.Counter
	reportsBound      prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter) {
	created := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_runs_created_total",
			Help: "Number of collection runs created",
		},
		[]string{"zone"},
	)
	trans := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_run_transitions_total",
			Help: "Number of run state transitions",
		},
		[]string{"status"},
	)
	conflicts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_conflicts_total",
			Help: "Number of run creations abandoned after losing the vehicle race twice",
		},
	)
	bound := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reports_bound_total",
			Help: "Number of reports bound to collection runs",
		},
	)
	return created, trans, conflicts, bound
}

func init() {
	runsCreated, runTransitions, dispatchConflicts, reportsBound = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers schedule metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(runsCreated, runTransitions, dispatchConflicts, reportsBound)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	runsCreated, runTransitions, dispatchConflicts, reportsBound = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
