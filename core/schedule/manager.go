package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kdarko/wastedispatch/core/capacity"
	"github.com/kdarko/wastedispatch/core/events"
	"github.com/kdarko/wastedispatch/core/forecast"
	"github.com/kdarko/wastedispatch/core/fuel"
	"github.com/kdarko/wastedispatch/core/logger"
	"github.com/kdarko/wastedispatch/core/metrics"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/recommend"
	"github.com/kdarko/wastedispatch/core/reports"
	"github.com/kdarko/wastedispatch/core/store"
	"github.com/kdarko/wastedispatch/internal/eventbus"
)

var (
	// ErrInvalidTransition is returned for run state-machine violations. The
	// run is left unchanged.
	ErrInvalidTransition = errors.New("schedule: invalid run transition")
	// ErrDispatchConflict is returned when run creation lost the vehicle
	// reservation race twice.
	ErrDispatchConflict = errors.New("schedule: dispatch conflict")
	// ErrNotStarted is returned when a run is advanced to in-progress before
	// its scheduled start without a dispatcher override.
	ErrNotStarted = errors.New("schedule: run not due to start yet")

	// errNoReportsBound aborts a creation unit of work when every pending
	// report lost its binding race to a concurrent run.
	errNoReportsBound = errors.New("schedule: no reports bound")
)

// Manager owns the collection-run state machine and the Report and Run
// transitions. It coordinates the aggregator, recommender and both ledgers.
type Manager struct {
	st   store.Store
	agg  *reports.Aggregator
	rec  *recommend.Recommender
	fuel *fuel.Ledger
	cap  *capacity.Ledger
	fc   forecast.Engine
	bus  eventbus.EventBus
	log  logger.Logger
	sink metrics.Sink
	cfg  Config

	mu       sync.Mutex
	inflight map[string]bool
}

// NewManager creates a Manager.
func NewManager(st store.Store, agg *reports.Aggregator, rec *recommend.Recommender,
	fl *fuel.Ledger, cl *capacity.Ledger, cfg Config, bus eventbus.EventBus,
	sink metrics.Sink, log logger.Logger) (*Manager, error) {
	if st == nil || agg == nil || rec == nil || fl == nil || cl == nil {
		return nil, fmt.Errorf("schedule: nil parameter provided to NewManager")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Manager{
		st:       st,
		agg:      agg,
		rec:      rec,
		fuel:     fl,
		cap:      cl,
		cfg:      cfg,
		bus:      bus,
		sink:     sink,
		log:      log,
		inflight: make(map[string]bool),
	}, nil
}

// SetForecast configures the optional advisory forecast engine.
func (m *Manager) SetForecast(fc forecast.Engine) { m.fc = fc }

// acquireZone takes the short-lived per-zone creation lock. It prevents
// redundant double-dispatch attempts from overlapping checks, not full
// serialization of reads.
func (m *Manager) acquireZone(zone string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight[zone] {
		return false
	}
	m.inflight[zone] = true
	return true
}

func (m *Manager) releaseZone(zone string) {
	m.mu.Lock()
	delete(m.inflight, zone)
	m.mu.Unlock()
}

// CreateRun checks the zone threshold and, when crossed, creates a collection
// run: the recommended vehicle is reserved by compare-and-swap, the run is
// inserted and the pending reports are bound, all in one unit of work. A lost
// vehicle race is retried once with the stale vehicle excluded; losing twice
// surfaces ErrDispatchConflict. Returns (nil, nil) when no run is warranted.
func (m *Manager) CreateRun(ctx context.Context, zone string) (*model.Run, error) {
	if !m.acquireZone(zone) {
		m.log.Debugf("zone %s: run creation already in flight", zone)
		return nil, nil
	}
	defer m.releaseZone(zone)

	now := time.Now()
	tally := m.agg.Tally(zone, now)
	if !m.agg.ThresholdCrossed(tally) {
		return nil, nil
	}
	m.forecastHint(ctx, zone)

	exclude := map[string]bool{}
	for attempt := 0; attempt < 2; attempt++ {
		rc, err := m.rec.Recommend(zone, exclude)
		if err != nil {
			return nil, err
		}
		run, err := m.tryCreate(zone, tally, rc, now)
		switch {
		case err == nil:
			runsCreated.WithLabelValues(zone).Inc()
			reportsBound.Add(float64(run.ReportsCount))
			m.recordRunEvent(run)
			m.publish(events.RunCreated{Run: run})
			m.log.Infof("zone %s: run %s created with vehicle %s (%d reports)",
				zone, run.ID, run.VehicleID, run.ReportsCount)
			return &run, nil
		case errors.Is(err, errNoReportsBound):
			// Every pending report was claimed by a concurrent run; the
			// threshold no longer holds.
			m.log.Infof("zone %s: reports claimed concurrently, skipping run", zone)
			return nil, nil
		case errors.Is(err, store.ErrConflict):
			m.log.Warnf("zone %s: vehicle %s reservation lost, retrying", zone, rc.VehicleID)
			exclude[rc.VehicleID] = true
		default:
			return nil, err
		}
	}
	dispatchConflicts.Inc()
	m.publish(events.DispatchConflict{Zone: zone})
	return nil, ErrDispatchConflict
}

// tryCreate performs one creation attempt as a single unit of work.
func (m *Manager) tryCreate(zone string, tally reports.Tally, rc recommend.Recommendation, now time.Time) (model.Run, error) {
	start := now.Add(time.Duration(m.cfg.StartDelayMinutes) * time.Minute)
	run := model.Run{
		ID:                  uuid.NewString(),
		VehicleID:           rc.VehicleID,
		Zone:                zone,
		FacilityID:          rc.FacilityID,
		ScheduledStart:      start,
		EstimatedCompletion: start.Add(m.rec.EstimateDuration(rc.EstimatedDistanceKm)),
		Status:              model.RunScheduled,
		EstimatedDistanceKm: rc.EstimatedDistanceKm,
		EstimatedFuelL:      rc.EstimatedFuelL,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	err := m.st.Atomic(func(tx store.Store) error {
		if err := tx.SwapVehicleStatus(rc.VehicleID, model.VehicleAvailable, model.VehicleOnRoute); err != nil {
			return err
		}
		if err := tx.UpdateVehicle(rc.VehicleID, func(v *model.Vehicle) {
			if v.ZoneRuns == nil {
				v.ZoneRuns = map[string]int{}
			}
			v.ZoneRuns[zone]++
		}); err != nil {
			return err
		}
		bound := m.agg.Bind(tx, tally.PendingIDs, run.ID)
		if len(bound) == 0 {
			return errNoReportsBound
		}
		run.ReportsCount = len(bound)
		tx.PutRun(run)
		tx.PutDelivery(model.Delivery{
			ID:               uuid.NewString(),
			VehicleID:        rc.VehicleID,
			FacilityID:       rc.FacilityID,
			RunID:            run.ID,
			Zone:             zone,
			Status:           model.DeliveryPending,
			EstimatedArrival: run.EstimatedCompletion,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		return nil
	})
	return run, err
}

// Advance moves a run from scheduled to in-progress. Starting before the
// scheduled start requires the dispatcher override. Any other target is an
// invalid transition.
func (m *Manager) Advance(runID string, target model.RunStatus, override bool) (model.Run, error) {
	run, err := m.st.Run(runID)
	if err != nil {
		return model.Run{}, err
	}
	if target != model.RunInProgress || !model.CanTransition(run.Status, target) {
		return model.Run{}, ErrInvalidTransition
	}
	if time.Now().Before(run.ScheduledStart) && !override {
		return model.Run{}, ErrNotStarted
	}
	if err := m.st.TransitionRun(runID, model.RunScheduled, model.RunInProgress); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return model.Run{}, ErrInvalidTransition
		}
		return model.Run{}, err
	}
	if d, ok := m.st.DeliveryByRun(runID); ok {
		if err := m.st.SwapDeliveryStatus(d.ID, model.DeliveryPending, model.DeliveryInTransit); err != nil {
			m.log.Warnf("run %s: delivery %s not marked in-transit: %v", runID, d.ID, err)
		}
	}
	run, err = m.st.Run(runID)
	if err != nil {
		return model.Run{}, err
	}
	runTransitions.WithLabelValues(run.Status.String()).Inc()
	m.recordRunEvent(run)
	m.publish(events.RunStarted{Run: run})
	m.log.Infof("run %s started", runID)
	return run, nil
}

// CompletionInput carries the measured outcome of a finished run.
type CompletionInput struct {
	ActualDistanceKm float64           `json:"actual_distance_km"`
	FuelConsumedL    float64           `json:"fuel_consumed_liters"`
	FuelCost         float64           `json:"fuel_cost"`
	FacilityID       string            `json:"facility_id"`
	WeightKg         float64           `json:"weight"`
	Composition      model.Composition `json:"composition"`
}

// Complete finishes an in-progress run. Fuel reconciliation, the facility
// delivery, report resolution and the run transition commit as one unit of
// work; if any step fails the run stays in-progress and the error is
// retryable.
func (m *Manager) Complete(runID string, in CompletionInput) (model.Run, error) {
	run, err := m.st.Run(runID)
	if err != nil {
		return model.Run{}, err
	}
	if !model.CanTransition(run.Status, model.RunCompleted) {
		return model.Run{}, ErrInvalidTransition
	}
	facilityID := in.FacilityID
	if facilityID == "" {
		facilityID = run.FacilityID
	}

	var (
		recRes   fuel.ReconcileResult
		capRes   capacity.DeliveryResult
		delivery model.Delivery
	)
	err = m.st.Atomic(func(tx store.Store) error {
		if err := tx.TransitionRun(runID, model.RunInProgress, model.RunCompleted); err != nil {
			return err
		}
		var err error
		recRes, err = m.fuel.In(tx).Reconcile(run.VehicleID, runID, in.ActualDistanceKm, in.FuelConsumedL, in.FuelCost)
		if err != nil {
			return err
		}
		capRes, err = m.cap.In(tx).ApplyDelivery(facilityID, in.WeightKg, in.Composition)
		if err != nil {
			return err
		}
		if err := m.agg.Resolve(tx, runID); err != nil {
			return err
		}
		if d, ok := tx.DeliveryByRun(runID); ok {
			delivery = d
			return tx.UpdateDelivery(d.ID, func(dd *model.Delivery) {
				dd.FacilityID = facilityID
				dd.WeightKg = in.WeightKg
				dd.Composition = in.Composition.Clone()
				dd.Status = model.DeliveryCompleted
				delivery = *dd
			})
		}
		delivery = model.Delivery{
			ID:          uuid.NewString(),
			VehicleID:   run.VehicleID,
			FacilityID:  facilityID,
			RunID:       runID,
			Zone:        run.Zone,
			WeightKg:    in.WeightKg,
			Composition: in.Composition.Clone(),
			Status:      model.DeliveryCompleted,
			CreatedAt:   time.Now(),
		}
		tx.PutDelivery(delivery)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return model.Run{}, ErrInvalidTransition
		}
		return model.Run{}, fmt.Errorf("complete run %s: %w", runID, err)
	}

	m.fuel.ArchiveEntry(recRes.Entry)
	run, err = m.st.Run(runID)
	if err != nil {
		return model.Run{}, err
	}
	runTransitions.WithLabelValues(run.Status.String()).Inc()
	m.recordRunEvent(run)
	m.recordCompletion(run, recRes, capRes, in)
	m.publish(events.RunCompleted{Run: run, FuelEntry: recRes.Entry, Delivery: delivery})
	if recRes.NeedsRefuel {
		m.publish(events.NeedsRefuel{Vehicle: recRes.Vehicle})
	}
	if capRes.OverCapacityKg > 0 {
		m.publish(events.OverCapacity{Facility: capRes.Facility, ExcessKg: capRes.OverCapacityKg})
	}
	if capRes.CrossedHighWater {
		m.publish(events.HighUtilization{Facility: capRes.Facility, Utilization: capRes.NewUtilization})
	}
	m.log.Infof("run %s completed: %.1f km, %.2f L, %.1f kg delivered to %s",
		runID, in.ActualDistanceKm, in.FuelConsumedL, in.WeightKg, facilityID)
	return run, nil
}

// Cancel aborts a run from any non-terminal state: the vehicle is released,
// bound reports revert to new and the pending delivery is removed.
func (m *Manager) Cancel(runID, reason string) (model.Run, error) {
	run, err := m.st.Run(runID)
	if err != nil {
		return model.Run{}, err
	}
	if !model.CanTransition(run.Status, model.RunCancelled) {
		return model.Run{}, ErrInvalidTransition
	}
	err = m.st.Atomic(func(tx store.Store) error {
		if err := tx.TransitionRun(runID, run.Status, model.RunCancelled); err != nil {
			return err
		}
		if err := tx.UpdateRun(runID, func(r *model.Run) { r.CancelReason = reason }); err != nil {
			return err
		}
		if err := tx.SwapVehicleStatus(run.VehicleID, model.VehicleOnRoute, model.VehicleAvailable); err != nil {
			// The vehicle may already have been released or sent to
			// maintenance; cancellation proceeds regardless.
			m.log.Warnf("run %s: vehicle %s not released: %v", runID, run.VehicleID, err)
		}
		m.agg.Release(tx, runID)
		if d, ok := tx.DeliveryByRun(runID); ok && d.Status != model.DeliveryCompleted {
			tx.DeleteDelivery(d.ID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return model.Run{}, ErrInvalidTransition
		}
		return model.Run{}, err
	}
	run, err = m.st.Run(runID)
	if err != nil {
		return model.Run{}, err
	}
	runTransitions.WithLabelValues(run.Status.String()).Inc()
	m.recordRunEvent(run)
	m.publish(events.RunCancelled{Run: run, Reason: reason})
	m.log.Infof("run %s cancelled: %s", runID, reason)
	return run, nil
}

// Run performs periodic threshold checks for every configured zone until the
// context is canceled.
func (m *Manager) Run(ctx context.Context) {
	interval := time.Duration(m.cfg.CheckIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.CheckZones(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckZones runs one threshold check across all configured zones.
func (m *Manager) CheckZones(ctx context.Context) {
	for _, zone := range m.cfg.Zones {
		if _, err := m.CreateRun(ctx, zone); err != nil {
			switch {
			case errors.Is(err, recommend.ErrNoVehicleAvailable):
				m.log.Warnf("zone %s: %v", zone, err)
			case errors.Is(err, ErrDispatchConflict):
				m.log.Warnf("zone %s: %v", zone, err)
			default:
				m.log.Errorf("zone %s: run creation failed: %v", zone, err)
			}
		}
	}
}

// forecastHint asks the advisory service for a demand hint. Failures degrade
// to dispatching without the hint.
func (m *Manager) forecastHint(ctx context.Context, zone string) {
	if m.fc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	hint, err := m.fc.ZoneLoad(ctx, zone)
	if err != nil {
		m.log.Warnf("zone %s: forecast unavailable: %v", zone, err)
		return
	}
	m.log.Debugw("forecast hint", map[string]any{
		"zone":             zone,
		"expected_reports": hint.ExpectedReports,
		"horizon":          hint.Horizon.String(),
	})
}

func (m *Manager) publish(ev eventbus.Event) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}

func (m *Manager) recordRunEvent(run model.Run) {
	ev := metrics.RunEvent{
		RunID:          run.ID,
		Zone:           run.Zone,
		VehicleID:      run.VehicleID,
		Status:         run.Status.String(),
		Reports:        run.ReportsCount,
		EstimatedFuelL: run.EstimatedFuelL,
		Time:           time.Now(),
	}
	if err := m.sink.RecordRunEvent(ev); err != nil {
		m.log.Errorf("run metrics error: %v", err)
	}
}

func (m *Manager) recordCompletion(run model.Run, recRes fuel.ReconcileResult, capRes capacity.DeliveryResult, in CompletionInput) {
	fe := metrics.FuelEvent{
		VehicleID:        run.VehicleID,
		RunID:            run.ID,
		EntryType:        recRes.Entry.Type.String(),
		DistanceKm:       recRes.Entry.DistanceKm,
		FuelL:            recRes.Entry.FuelConsumedL,
		EfficiencyKmPerL: recRes.Entry.ActualEfficiencyKmPerL,
		FuelPct:          recRes.Vehicle.FuelPercentage(),
		Time:             time.Now(),
	}
	if err := m.sink.RecordFuelEvent(fe); err != nil {
		m.log.Errorf("fuel metrics error: %v", err)
	}
	ce := metrics.CapacityEvent{
		FacilityID:     capRes.Facility.ID,
		DeliveredKg:    in.WeightKg,
		Utilization:    capRes.NewUtilization,
		OverCapacityKg: capRes.OverCapacityKg,
		Time:           time.Now(),
	}
	if err := m.sink.RecordCapacityEvent(ce); err != nil {
		m.log.Errorf("capacity metrics error: %v", err)
	}
}
