package model

import "time"

// ReportStatus tracks the lifecycle of a bin-full report. Transitions are
// monotonic: New may become Scheduled, Scheduled may become Resolved, and any
// non-terminal status may become Cancelled.
type ReportStatus int

const (
	ReportNew ReportStatus = iota
	ReportScheduled
	ReportResolved
	ReportCancelled
)

// String returns a human-readable representation of the report status.
func (s ReportStatus) String() string {
	switch s {
	case ReportNew:
		return "new"
	case ReportScheduled:
		return "scheduled"
	case ReportResolved:
		return "resolved"
	case ReportCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports true for statuses that permit no further transitions.
func (s ReportStatus) Terminal() bool {
	return s == ReportResolved || s == ReportCancelled
}

// ParseReportStatus maps the wire representation back to a ReportStatus.
func ParseReportStatus(s string) (ReportStatus, bool) {
	switch s {
	case "new":
		return ReportNew, true
	case "scheduled":
		return ReportScheduled, true
	case "resolved":
		return ReportResolved, true
	case "cancelled":
		return ReportCancelled, true
	default:
		return 0, false
	}
}

// Location is a GPS coordinate attached to a report.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Report is a resident-filed bin-full report. A report is bound to at most one
// active run over its lifetime; RunID is empty while unbound.
type Report struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id,omitempty"`
	Zone        string       `json:"zone"`
	Status      ReportStatus `json:"status"`
	Description string       `json:"description,omitempty"`
	Location    Location     `json:"location"`
	RunID       string       `json:"run_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ResolvedAt  time.Time    `json:"resolved_at,omitempty"`
}
