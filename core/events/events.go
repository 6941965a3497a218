package events

import "github.com/kdarko/wastedispatch/core/model"

// ReportFiled is published when a resident submits a bin-full report.
type ReportFiled struct {
	Report model.Report
}

// RunCreated is published after a collection run has been created and its
// reports bound.
type RunCreated struct {
	Run model.Run
}

// RunStarted is published when a run moves to in-progress.
type RunStarted struct {
	Run model.Run
}

// RunCompleted is published after completion has been committed, including
// fuel reconciliation and the facility delivery.
type RunCompleted struct {
	Run       model.Run
	FuelEntry model.FuelLogEntry
	Delivery  model.Delivery
}

// RunCancelled is published when a run is cancelled.
type RunCancelled struct {
	Run    model.Run
	Reason string
}

// DispatchConflict is published when run creation lost the vehicle race twice.
type DispatchConflict struct {
	Zone string
}

// NeedsRefuel is published when reconciliation drops a vehicle below the
// refuel threshold.
type NeedsRefuel struct {
	Vehicle model.Vehicle
}

// OverCapacity is published when a delivery pushes a facility past its
// maximum capacity. The delivery is accepted regardless.
type OverCapacity struct {
	Facility model.Facility
	ExcessKg float64
}

// HighUtilization is published when a delivery crosses the configured
// high-water utilization mark.
type HighUtilization struct {
	Facility    model.Facility
	Utilization float64
}
