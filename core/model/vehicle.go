package model

import (
	"fmt"
	"math"
	"time"
)

// VehicleStatus tracks availability of a collection vehicle.
type VehicleStatus int

const (
	VehicleAvailable VehicleStatus = iota
	VehicleOnRoute
	VehicleMaintenance
)

// String returns a human-readable representation of the vehicle status.
func (s VehicleStatus) String() string {
	switch s {
	case VehicleAvailable:
		return "available"
	case VehicleOnRoute:
		return "on-route"
	case VehicleMaintenance:
		return "maintenance"
	default:
		return "unknown"
	}
}

// Vehicle represents a collection vehicle. Fuel fields are owned by the fuel
// ledger; Status is swapped by the schedule manager (reservation) and by the
// fuel ledger (release on reconciliation).
type Vehicle struct {
	ID                   string        `json:"id"`
	Type                 string        `json:"type"`
	FuelEfficiencyKmPerL float64       `json:"fuel_efficiency_kmpl"`
	TankCapacityL        float64       `json:"tank_capacity_liters"`
	CurrentFuelL         float64       `json:"current_fuel_level"`
	Status               VehicleStatus `json:"status"`
	TotalDistanceKm      float64       `json:"total_distance_km"`

	// ZoneRuns counts completed and scheduled runs per zone. Used by the
	// recommender to prefer vehicles historically assigned to a zone.
	ZoneRuns map[string]int `json:"zone_runs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that the vehicle configuration is sound.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.TankCapacityL <= 0 {
		return fmt.Errorf("tank capacity must be positive")
	}
	if v.FuelEfficiencyKmPerL <= 0 {
		return fmt.Errorf("fuel efficiency must be positive")
	}
	if v.CurrentFuelL < 0 || v.CurrentFuelL > v.TankCapacityL {
		return fmt.Errorf("fuel level %.2f outside [0, %.2f]", v.CurrentFuelL, v.TankCapacityL)
	}
	return nil
}

// FuelPercentage returns the unrounded fill percentage in [0,100].
func (v Vehicle) FuelPercentage() float64 {
	if v.TankCapacityL <= 0 {
		return 0
	}
	return v.CurrentFuelL / v.TankCapacityL * 100
}

// FuelPercentageDisplay returns the fill percentage rounded to the nearest
// integer. Internal computations use the unrounded value.
func (v Vehicle) FuelPercentageDisplay() int {
	return int(math.Round(v.FuelPercentage()))
}

// EstimatedRangeKm returns the distance the vehicle can cover on its current
// fuel level.
func (v Vehicle) EstimatedRangeKm() float64 {
	return v.CurrentFuelL * v.FuelEfficiencyKmPerL
}

// NeedsRefuel reports whether the fill percentage is below the given
// threshold percentage.
func (v Vehicle) NeedsRefuel(thresholdPct float64) bool {
	return v.FuelPercentage() < thresholdPct
}

// CloneZoneRuns returns a copy of the zone run counters.
func (v Vehicle) CloneZoneRuns() map[string]int {
	if v.ZoneRuns == nil {
		return nil
	}
	cp := make(map[string]int, len(v.ZoneRuns))
	for k, n := range v.ZoneRuns {
		cp[k] = n
	}
	return cp
}
