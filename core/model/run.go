package model

import "time"

// RunStatus tracks the collection run state machine.
type RunStatus int

const (
	RunScheduled RunStatus = iota
	RunInProgress
	RunCompleted
	RunCancelled
)

// String returns a human-readable representation of the run status.
func (s RunStatus) String() string {
	switch s {
	case RunScheduled:
		return "scheduled"
	case RunInProgress:
		return "in-progress"
	case RunCompleted:
		return "completed"
	case RunCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports true for completed and cancelled runs.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunCancelled
}

// ParseRunStatus maps the wire representation back to a RunStatus.
func ParseRunStatus(s string) (RunStatus, bool) {
	switch s {
	case "scheduled":
		return RunScheduled, true
	case "in-progress":
		return RunInProgress, true
	case "completed":
		return RunCompleted, true
	case "cancelled":
		return RunCancelled, true
	default:
		return 0, false
	}
}

// CanTransition validates the run state machine:
// scheduled -> in-progress -> completed, and scheduled|in-progress -> cancelled.
func CanTransition(from, to RunStatus) bool {
	switch from {
	case RunScheduled:
		return to == RunInProgress || to == RunCancelled
	case RunInProgress:
		return to == RunCompleted || to == RunCancelled
	default:
		return false
	}
}

// Run is one scheduled collection trip for a zone, bound to one vehicle and a
// set of reports. Exactly one non-terminal run exists per vehicle at a time.
type Run struct {
	ID                  string    `json:"id"`
	VehicleID           string    `json:"vehicle_id"`
	Zone                string    `json:"zone"`
	FacilityID          string    `json:"facility_id"`
	ScheduledStart      time.Time `json:"scheduled_start"`
	EstimatedCompletion time.Time `json:"estimated_completion"`
	Status              RunStatus `json:"status"`
	ReportsCount        int       `json:"reports_count"`
	EstimatedDistanceKm float64   `json:"estimated_distance_km"`
	EstimatedFuelL      float64   `json:"estimated_fuel_liters"`
	CancelReason        string    `json:"cancel_reason,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
