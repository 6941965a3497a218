package capacity

import (
	"fmt"

	"github.com/kdarko/wastedispatch/core/logger"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/store"
)

// Config defines the capacity ledger knobs.
type Config struct {
	// HighWaterPct triggers a utilization notification when crossed.
	HighWaterPct float64 `json:"high_water_pct"`
	// CompositionTolerance is the accepted deviation of a composition sum
	// from 100.
	CompositionTolerance float64 `json:"composition_tolerance"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.HighWaterPct == 0 {
		c.HighWaterPct = 80
	}
	if c.CompositionTolerance == 0 {
		c.CompositionTolerance = 0.5
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.HighWaterPct <= 0 || c.HighWaterPct > 100 {
		return fmt.Errorf("high_water_pct %.1f outside (0,100]", c.HighWaterPct)
	}
	if c.CompositionTolerance < 0 {
		return fmt.Errorf("composition_tolerance must be non-negative")
	}
	return nil
}

// Ledger owns facility capacity and composition. Deliveries are physical:
// exceeding the maximum capacity is flagged, never rejected.
type Ledger struct {
	st  store.Store
	cfg Config
	log logger.Logger
}

// NewLedger creates a Ledger.
func NewLedger(st store.Store, cfg Config, log logger.Logger) *Ledger {
	return &Ledger{st: st, cfg: cfg, log: log}
}

// In returns a copy of the ledger operating on st, used to join a unit of
// work during run completion.
func (l *Ledger) In(st store.Store) *Ledger {
	cp := *l
	cp.st = st
	return &cp
}

// DeliveryResult carries the facility state after a delivery was applied.
type DeliveryResult struct {
	Facility         model.Facility
	OverCapacityKg   float64
	PrevUtilization  float64
	NewUtilization   float64
	CrossedHighWater bool
}

// ApplyDelivery validates the delivered composition, adds the weight to the
// facility and recomputes its composition as the weight-weighted average of
// the prior and delivered profiles, renormalised to sum exactly to 100. The
// stored fill level is capped at the facility maximum; any excess is
// returned as OverCapacityKg instead of being recorded.
func (l *Ledger) ApplyDelivery(facilityID string, weightKg float64, delivered model.Composition) (DeliveryResult, error) {
	if weightKg < 0 {
		return DeliveryResult{}, fmt.Errorf("capacity: negative weight %.2f", weightKg)
	}
	if err := delivered.Validate(l.cfg.CompositionTolerance); err != nil {
		return DeliveryResult{}, fmt.Errorf("capacity: %w", err)
	}

	var res DeliveryResult
	err := l.st.UpdateFacility(facilityID, func(f *model.Facility) {
		res.PrevUtilization = f.Utilization()
		oldCap := f.CurrentCapacityKg
		if f.Composition == nil {
			f.Composition = model.Composition{}
		}
		if oldCap+weightKg > 0 {
			merged := model.Composition{}
			for cat := range f.Composition {
				merged[cat] = 0
			}
			for cat := range delivered {
				merged[cat] = 0
			}
			for cat := range merged {
				merged[cat] = (oldCap*f.Composition[cat] + weightKg*delivered[cat]) / (oldCap + weightKg)
			}
			merged.Normalize()
			f.Composition = merged
		}
		f.CurrentCapacityKg += weightKg
		if f.CurrentCapacityKg > f.MaxCapacityKg {
			res.OverCapacityKg = f.CurrentCapacityKg - f.MaxCapacityKg
			f.CurrentCapacityKg = f.MaxCapacityKg
		}
		res.NewUtilization = f.Utilization()
		res.Facility = *f
	})
	if err != nil {
		return DeliveryResult{}, err
	}
	res.Facility.Composition = res.Facility.Composition.Clone()
	res.CrossedHighWater = res.PrevUtilization < l.cfg.HighWaterPct && res.NewUtilization >= l.cfg.HighWaterPct
	if res.OverCapacityKg > 0 {
		l.log.Warnf("facility %s over capacity by %.1f kg", facilityID, res.OverCapacityKg)
	}
	return res, nil
}

// Utilization returns the fill percentage of the facility. Side-effect free.
func (l *Ledger) Utilization(facilityID string) (float64, error) {
	f, err := l.st.Facility(facilityID)
	if err != nil {
		return 0, err
	}
	return f.Utilization(), nil
}

// HighWaterPct exposes the configured high-water mark.
func (l *Ledger) HighWaterPct() float64 { return l.cfg.HighWaterPct }
