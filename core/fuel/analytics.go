package fuel

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kdarko/wastedispatch/core/model"
)

// VehicleAnalytics aggregates fuel consumption for one vehicle over a period.
type VehicleAnalytics struct {
	VehicleID           string  `json:"vehicle_id"`
	TotalDistanceKm     float64 `json:"total_distance"`
	TotalFuelL          float64 `json:"total_fuel_consumed"`
	AvgEfficiencyKmPerL float64 `json:"avg_efficiency"`
	EfficiencyVsRated   float64 `json:"efficiency_vs_rated"`
	TotalCost           float64 `json:"total_fuel_cost"`
	Trips               int     `json:"trips"`
	Refuels             int     `json:"refuels"`
}

// Summary totals the fleet-wide analytics.
type Summary struct {
	TotalDistanceKm float64 `json:"total_distance"`
	TotalFuelL      float64 `json:"total_fuel_consumed"`
	TotalCost       float64 `json:"total_cost"`
	TotalTrips      int     `json:"total_trips"`
	AvgCostPerKm    float64 `json:"avg_cost_per_km"`
}

// Analytics is the period report returned by the fuel analytics endpoint.
type Analytics struct {
	PeriodDays int                `json:"period_days"`
	Vehicles   []VehicleAnalytics `json:"vehicles"`
	Summary    Summary            `json:"summary"`
}

// Analytics aggregates the fuel log over the last periodDays. A non-empty
// vehicleID restricts the report to one vehicle.
func (l *Ledger) Analytics(periodDays int, vehicleID string) Analytics {
	if periodDays <= 0 {
		periodDays = 7
	}
	since := time.Now().AddDate(0, 0, -periodDays)
	entries := l.st.FuelLogs(vehicleID, since)

	perVehicle := map[string]*VehicleAnalytics{}
	efficiencies := map[string][]float64{}
	order := []string{}
	for _, e := range entries {
		va, ok := perVehicle[e.VehicleID]
		if !ok {
			va = &VehicleAnalytics{VehicleID: e.VehicleID}
			perVehicle[e.VehicleID] = va
			order = append(order, e.VehicleID)
		}
		switch e.Type {
		case model.FuelEntryRefuel:
			va.Refuels++
			va.TotalCost += e.Cost
		case model.FuelEntryTrip:
			va.Trips++
			va.TotalDistanceKm += e.DistanceKm
			va.TotalFuelL += e.FuelConsumedL
			va.TotalCost += e.Cost
			if e.ActualEfficiencyKmPerL > 0 {
				efficiencies[e.VehicleID] = append(efficiencies[e.VehicleID], e.ActualEfficiencyKmPerL)
			}
		}
	}

	out := Analytics{PeriodDays: periodDays}
	for _, id := range order {
		va := perVehicle[id]
		if eff := efficiencies[id]; len(eff) > 0 {
			va.AvgEfficiencyKmPerL = stat.Mean(eff, nil)
		}
		if v, err := l.st.Vehicle(id); err == nil && v.FuelEfficiencyKmPerL > 0 {
			va.EfficiencyVsRated = va.AvgEfficiencyKmPerL / v.FuelEfficiencyKmPerL * 100
		}
		out.Vehicles = append(out.Vehicles, *va)
		out.Summary.TotalDistanceKm += va.TotalDistanceKm
		out.Summary.TotalFuelL += va.TotalFuelL
		out.Summary.TotalCost += va.TotalCost
		out.Summary.TotalTrips += va.Trips
	}
	if out.Summary.TotalDistanceKm > 0 {
		out.Summary.AvgCostPerKm = out.Summary.TotalCost / out.Summary.TotalDistanceKm
	}
	return out
}
