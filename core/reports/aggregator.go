package reports

import (
	"errors"
	"time"

	"github.com/kdarko/wastedispatch/core/logger"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/store"
)

// Config defines the threshold knobs that justify creating a collection run.
type Config struct {
	// ReportThreshold is the pending-report count that triggers a run.
	ReportThreshold int `json:"report_threshold"`
	// MaxWaitMinutes triggers a run when the oldest pending report has waited
	// this long, regardless of count.
	MaxWaitMinutes int `json:"max_wait_minutes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ReportThreshold == 0 {
		c.ReportThreshold = 5
	}
	if c.MaxWaitMinutes == 0 {
		c.MaxWaitMinutes = 24 * 60
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.ReportThreshold < 1 {
		return errors.New("report_threshold must be at least 1")
	}
	if c.MaxWaitMinutes < 1 {
		return errors.New("max_wait_minutes must be at least 1")
	}
	return nil
}

// MaxWait returns the wait knob as a duration.
func (c Config) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitMinutes) * time.Minute
}

// Tally summarises the pending reports of a zone.
type Tally struct {
	Zone             string        `json:"zone"`
	PendingCount     int           `json:"pending_count"`
	OldestPendingAge time.Duration `json:"oldest_pending_age"`
	PendingIDs       []string      `json:"-"`
}

// Aggregator counts and ages pending reports per zone and performs the
// conditional bind/release updates on behalf of the schedule manager.
type Aggregator struct {
	st  store.Store
	cfg Config
	log logger.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(st store.Store, cfg Config, log logger.Logger) *Aggregator {
	return &Aggregator{st: st, cfg: cfg, log: log}
}

// Tally counts reports with status new in the zone. Side-effect free:
// calling it twice with no intervening writes returns identical results.
func (a *Aggregator) Tally(zone string, now time.Time) Tally {
	pending := a.st.ReportsByZone(zone, model.ReportNew)
	t := Tally{Zone: zone, PendingCount: len(pending)}
	for _, r := range pending {
		t.PendingIDs = append(t.PendingIDs, r.ID)
		if age := now.Sub(r.CreatedAt); age > t.OldestPendingAge {
			t.OldestPendingAge = age
		}
	}
	return t
}

// ThresholdCrossed reports whether the tally justifies a collection run:
// either the pending count reached the configured threshold or the oldest
// pending report has waited past the configured maximum.
func (a *Aggregator) ThresholdCrossed(t Tally) bool {
	if t.PendingCount == 0 {
		return false
	}
	return t.PendingCount >= a.cfg.ReportThreshold || t.OldestPendingAge >= a.cfg.MaxWait()
}

// Bind conditionally binds the reports to the run. A report that already lost
// the race to another run fails independently; the returned slice holds the
// ids that bound successfully.
func (a *Aggregator) Bind(tx store.Store, ids []string, runID string) []string {
	bound := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := tx.BindReport(id, runID); err != nil {
			a.log.Debugf("report %s not bound to run %s: %v", id, runID, err)
			continue
		}
		bound = append(bound, id)
	}
	return bound
}

// Release reverts the bound, unresolved reports of a run back to new. It
// returns the ids it released.
func (a *Aggregator) Release(tx store.Store, runID string) []string {
	var released []string
	for _, r := range tx.ReportsByRun(runID) {
		if r.Status != model.ReportScheduled {
			continue
		}
		if err := tx.ReleaseReport(r.ID, runID); err != nil {
			a.log.Warnf("release report %s from run %s: %v", r.ID, runID, err)
			continue
		}
		released = append(released, r.ID)
	}
	return released
}

// Resolve marks all reports still bound to the run as resolved.
func (a *Aggregator) Resolve(tx store.Store, runID string) error {
	for _, r := range tx.ReportsByRun(runID) {
		if r.Status != model.ReportScheduled {
			continue
		}
		if err := tx.ResolveReport(r.ID, runID); err != nil {
			return err
		}
	}
	return nil
}
