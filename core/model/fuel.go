package model

import "time"

// FuelEntryType distinguishes trip consumption entries from refuels.
type FuelEntryType int

const (
	FuelEntryTrip FuelEntryType = iota
	FuelEntryRefuel
)

// String returns a human-readable representation of the entry type.
func (t FuelEntryType) String() string {
	switch t {
	case FuelEntryTrip:
		return "trip"
	case FuelEntryRefuel:
		return "refuel"
	default:
		return "unknown"
	}
}

// FuelLogEntry records one completed leg or refuel for a vehicle. Entries are
// immutable once appended. Refuels follow the ledger convention of zero
// distance and negative consumption.
type FuelLogEntry struct {
	ID                     string        `json:"id"`
	VehicleID              string        `json:"vehicle_id"`
	RunID                  string        `json:"run_id,omitempty"`
	Type                   FuelEntryType `json:"type"`
	DistanceKm             float64       `json:"distance_km"`
	FuelConsumedL          float64       `json:"fuel_consumed_liters"`
	ActualEfficiencyKmPerL float64       `json:"actual_efficiency_kmpl"`
	Cost                   float64       `json:"cost,omitempty"`
	LoggedAt               time.Time     `json:"logged_at"`
}
