package fuel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kdarko/wastedispatch/core/logger"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/store"
)

// RefuelPolicy selects where a vehicle goes after reconciliation leaves it
// below the refuel threshold.
const (
	PolicyAvailable   = "available"
	PolicyMaintenance = "maintenance"
)

// Config defines the fuel ledger knobs.
type Config struct {
	// RefuelThresholdPct flags a vehicle for refuelling below this fill
	// percentage.
	RefuelThresholdPct float64 `json:"refuel_threshold_pct"`
	// RefuelPolicy routes a flagged vehicle to "available" or "maintenance".
	RefuelPolicy string `json:"refuel_policy"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.RefuelThresholdPct == 0 {
		c.RefuelThresholdPct = 20
	}
	if c.RefuelPolicy == "" {
		c.RefuelPolicy = PolicyAvailable
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.RefuelThresholdPct < 0 || c.RefuelThresholdPct > 100 {
		return fmt.Errorf("refuel_threshold_pct %.1f outside [0,100]", c.RefuelThresholdPct)
	}
	if c.RefuelPolicy != PolicyAvailable && c.RefuelPolicy != PolicyMaintenance {
		return fmt.Errorf("unknown refuel_policy %q", c.RefuelPolicy)
	}
	return nil
}

// Archive receives immutable fuel log entries for long-term storage. Archive
// writes are best-effort and never block the ledger.
type Archive interface {
	Append(ctx context.Context, e model.FuelLogEntry) error
}

// Ledger owns the fuel fields of every vehicle: it consumes trip records,
// reconciles actual consumption against the tank, and handles refuels.
type Ledger struct {
	st      store.Store
	cfg     Config
	log     logger.Logger
	archive Archive
}

// NewLedger creates a Ledger.
func NewLedger(st store.Store, cfg Config, log logger.Logger) *Ledger {
	return &Ledger{st: st, cfg: cfg, log: log}
}

// SetArchive configures the long-term fuel log archive.
func (l *Ledger) SetArchive(a Archive) { l.archive = a }

// In returns a copy of the ledger operating on st, used to join a unit of
// work during run completion. The copy does not archive: the unit of work may
// still roll back, so the caller archives after commit via ArchiveEntry.
func (l *Ledger) In(st store.Store) *Ledger {
	cp := *l
	cp.st = st
	cp.archive = nil
	return &cp
}

// ArchiveEntry forwards an already-committed entry to the archive.
func (l *Ledger) ArchiveEntry(e model.FuelLogEntry) { l.archiveEntry(e) }

// ReconcileResult carries the appended entry and the vehicle state after
// reconciliation.
type ReconcileResult struct {
	Entry       model.FuelLogEntry
	Vehicle     model.Vehicle
	NeedsRefuel bool
}

// Reconcile appends a fuel log entry for a completed leg and updates the
// vehicle: fuel level is reduced by the actual consumption (floored at
// empty), derived fields recomputed, and the vehicle released to available —
// or to maintenance when it needs refuelling and the policy says so.
func (l *Ledger) Reconcile(vehicleID, runID string, distanceKm, fuelConsumedL, cost float64) (ReconcileResult, error) {
	if distanceKm < 0 {
		return ReconcileResult{}, fmt.Errorf("fuel: negative distance %.2f", distanceKm)
	}
	if fuelConsumedL < 0 {
		return ReconcileResult{}, fmt.Errorf("fuel: negative consumption %.2f", fuelConsumedL)
	}
	entry := model.FuelLogEntry{
		ID:            uuid.NewString(),
		VehicleID:     vehicleID,
		RunID:         runID,
		Type:          model.FuelEntryTrip,
		DistanceKm:    distanceKm,
		FuelConsumedL: fuelConsumedL,
		Cost:          cost,
		LoggedAt:      time.Now(),
	}
	if fuelConsumedL > 0 {
		entry.ActualEfficiencyKmPerL = distanceKm / fuelConsumedL
	}

	var res ReconcileResult
	err := l.st.UpdateVehicle(vehicleID, func(v *model.Vehicle) {
		v.CurrentFuelL -= fuelConsumedL
		if v.CurrentFuelL < 0 {
			v.CurrentFuelL = 0
		}
		v.TotalDistanceKm += distanceKm
		res.NeedsRefuel = v.NeedsRefuel(l.cfg.RefuelThresholdPct)
		if res.NeedsRefuel && l.cfg.RefuelPolicy == PolicyMaintenance {
			v.Status = model.VehicleMaintenance
		} else {
			v.Status = model.VehicleAvailable
		}
		res.Vehicle = *v
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	l.st.AppendFuelLog(entry)
	res.Entry = entry
	l.archiveEntry(entry)
	return res, nil
}

// Refuel adds fuel to a vehicle, clamped to its tank capacity, and appends a
// refuel entry to the log (zero distance, negative consumption).
func (l *Ledger) Refuel(vehicleID string, liters, cost float64) (model.Vehicle, error) {
	if liters <= 0 {
		return model.Vehicle{}, fmt.Errorf("fuel: refuel amount %.2f must be positive", liters)
	}
	var out model.Vehicle
	err := l.st.UpdateVehicle(vehicleID, func(v *model.Vehicle) {
		v.CurrentFuelL += liters
		if v.CurrentFuelL > v.TankCapacityL {
			v.CurrentFuelL = v.TankCapacityL
		}
		out = *v
	})
	if err != nil {
		return model.Vehicle{}, err
	}
	entry := model.FuelLogEntry{
		ID:            uuid.NewString(),
		VehicleID:     vehicleID,
		Type:          model.FuelEntryRefuel,
		FuelConsumedL: -liters,
		Cost:          cost,
		LoggedAt:      time.Now(),
	}
	l.st.AppendFuelLog(entry)
	l.archiveEntry(entry)
	return out, nil
}

// Plan is a planned-consumption check for a vehicle and distance.
type Plan struct {
	VehicleID         string  `json:"vehicle_id"`
	PlannedDistanceKm float64 `json:"planned_distance_km"`
	PlannedFuelL      float64 `json:"planned_fuel_consumption"`
	CurrentFuelL      float64 `json:"current_fuel_level"`
	Sufficient        bool    `json:"sufficient_fuel"`
	FuelNeededL       float64 `json:"fuel_needed"`
	EstimatedRangeKm  float64 `json:"estimated_range_km"`
}

// PlannedConsumption checks whether the vehicle can cover the distance on its
// current fuel level.
func (l *Ledger) PlannedConsumption(vehicleID string, distanceKm float64) (Plan, error) {
	if distanceKm < 0 {
		return Plan{}, fmt.Errorf("fuel: negative distance %.2f", distanceKm)
	}
	v, err := l.st.Vehicle(vehicleID)
	if err != nil {
		return Plan{}, err
	}
	planned := distanceKm / v.FuelEfficiencyKmPerL
	p := Plan{
		VehicleID:         vehicleID,
		PlannedDistanceKm: distanceKm,
		PlannedFuelL:      planned,
		CurrentFuelL:      v.CurrentFuelL,
		Sufficient:        v.CurrentFuelL >= planned,
		EstimatedRangeKm:  v.EstimatedRangeKm(),
	}
	if !p.Sufficient {
		p.FuelNeededL = planned - v.CurrentFuelL
	}
	return p, nil
}

func (l *Ledger) archiveEntry(e model.FuelLogEntry) {
	if l.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.archive.Append(ctx, e); err != nil {
		l.log.Warnf("fuel archive append: %v", err)
	}
}
