package metrics

import "time"

// RunEvent represents one run state change to be recorded.
type RunEvent struct {
	RunID          string
	Zone           string
	VehicleID      string
	Status         string
	Reports        int
	EstimatedFuelL float64
	Time           time.Time
}

// FuelEvent is a snapshot of a vehicle's fuel state after a ledger mutation.
type FuelEvent struct {
	VehicleID        string
	RunID            string
	EntryType        string
	DistanceKm       float64
	FuelL            float64
	EfficiencyKmPerL float64
	FuelPct          float64
	Time             time.Time
}

// CapacityEvent is a snapshot of a facility after a delivery was applied.
type CapacityEvent struct {
	FacilityID     string
	DeliveredKg    float64
	Utilization    float64
	OverCapacityKg float64
	Time           time.Time
}

// Sink records engine events for observability purposes.
type Sink interface {
	RecordRunEvent(ev RunEvent) error
	RecordFuelEvent(ev FuelEvent) error
	RecordCapacityEvent(ev CapacityEvent) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRunEvent(RunEvent) error           { return nil }
func (NopSink) RecordFuelEvent(FuelEvent) error         { return nil }
func (NopSink) RecordCapacityEvent(CapacityEvent) error { return nil }
