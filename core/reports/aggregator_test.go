package reports

import (
	"testing"
	"time"

	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/store"
	"github.com/kdarko/wastedispatch/infra/logger"
)

func newAggregator(st store.Store, threshold, maxWaitMin int) *Aggregator {
	cfg := Config{ReportThreshold: threshold, MaxWaitMinutes: maxWaitMin}
	return NewAggregator(st, cfg, logger.NopLogger{})
}

func seedReports(st store.Store, zone string, n int, createdAt time.Time) []string {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := zone + "-r" + string(rune('a'+i))
		st.PutReport(model.Report{ID: id, Zone: zone, Status: model.ReportNew, CreatedAt: createdAt})
		ids = append(ids, id)
	}
	return ids
}

func TestTallyCountsOnlyPendingInZone(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now()
	seedReports(st, "north", 3, now.Add(-10*time.Minute))
	seedReports(st, "south", 2, now)
	st.PutReport(model.Report{ID: "resolved", Zone: "north", Status: model.ReportResolved, CreatedAt: now})

	agg := newAggregator(st, 5, 60)
	tally := agg.Tally("north", now)
	if tally.PendingCount != 3 {
		t.Fatalf("expected 3 pending, got %d", tally.PendingCount)
	}
	if tally.OldestPendingAge != 10*time.Minute {
		t.Fatalf("expected 10m age, got %v", tally.OldestPendingAge)
	}
	if len(tally.PendingIDs) != 3 {
		t.Fatalf("expected 3 ids, got %v", tally.PendingIDs)
	}
}

func TestThresholdCrossedByCount(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now()
	seedReports(st, "north", 5, now)

	agg := newAggregator(st, 5, 24*60)
	if !agg.ThresholdCrossed(agg.Tally("north", now)) {
		t.Fatal("threshold should be crossed at the configured count")
	}

	agg6 := newAggregator(st, 6, 24*60)
	if agg6.ThresholdCrossed(agg6.Tally("north", now)) {
		t.Fatal("threshold should not be crossed below the count")
	}
}

func TestThresholdCrossedByAge(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now()
	st.PutReport(model.Report{ID: "old", Zone: "north", Status: model.ReportNew,
		CreatedAt: now.Add(-25 * time.Hour)})

	agg := newAggregator(st, 5, 24*60)
	if !agg.ThresholdCrossed(agg.Tally("north", now)) {
		t.Fatal("a single overdue report should cross the threshold")
	}
}

func TestThresholdNotCrossedWhenZeroPending(t *testing.T) {
	st := store.NewMemoryStore()
	agg := newAggregator(st, 1, 1)
	if agg.ThresholdCrossed(agg.Tally("north", time.Now())) {
		t.Fatal("empty zone must never cross the threshold")
	}
}

func TestBindPartialSuccess(t *testing.T) {
	st := store.NewMemoryStore()
	ids := seedReports(st, "north", 3, time.Now())
	// One report already claimed by a concurrent run.
	if err := st.BindReport(ids[1], "other-run"); err != nil {
		t.Fatalf("pre-bind: %v", err)
	}

	agg := newAggregator(st, 5, 60)
	bound := agg.Bind(st, ids, "run-a")
	if len(bound) != 2 {
		t.Fatalf("expected 2 bound, got %v", bound)
	}
	for _, id := range bound {
		r, _ := st.Report(id)
		if r.RunID != "run-a" || r.Status != model.ReportScheduled {
			t.Fatalf("report %s not bound: %+v", id, r)
		}
	}
}

func TestReleaseRevertsOnlyScheduled(t *testing.T) {
	st := store.NewMemoryStore()
	ids := seedReports(st, "north", 2, time.Now())
	agg := newAggregator(st, 5, 60)
	agg.Bind(st, ids, "run-a")
	if err := st.ResolveReport(ids[0], "run-a"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	released := agg.Release(st, "run-a")
	if len(released) != 1 || released[0] != ids[1] {
		t.Fatalf("expected only %s released, got %v", ids[1], released)
	}
	r, _ := st.Report(ids[1])
	if r.Status != model.ReportNew || r.RunID != "" {
		t.Fatalf("release did not revert: %+v", r)
	}
	r0, _ := st.Report(ids[0])
	if r0.Status != model.ReportResolved {
		t.Fatalf("resolved report must stay resolved: %+v", r0)
	}
}

func TestResolveMarksAllBound(t *testing.T) {
	st := store.NewMemoryStore()
	ids := seedReports(st, "north", 3, time.Now())
	agg := newAggregator(st, 5, 60)
	agg.Bind(st, ids, "run-a")

	if err := agg.Resolve(st, "run-a"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, id := range ids {
		r, _ := st.Report(id)
		if r.Status != model.ReportResolved {
			t.Fatalf("report %s not resolved: %+v", id, r)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	if cfg.ReportThreshold != 5 || cfg.MaxWaitMinutes != 24*60 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	bad := Config{ReportThreshold: 0, MaxWaitMinutes: 10}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}
