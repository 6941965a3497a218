package runs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kdarko/wastedispatch/core/capacity"
	"github.com/kdarko/wastedispatch/core/fuel"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/recommend"
	corereports "github.com/kdarko/wastedispatch/core/reports"
	"github.com/kdarko/wastedispatch/core/schedule"
	"github.com/kdarko/wastedispatch/core/store"
	"github.com/kdarko/wastedispatch/infra/logger"
	"github.com/kdarko/wastedispatch/internal/eventbus"
)

type env struct {
	st  *store.MemoryStore
	mux *http.ServeMux
}

func newEnv(t *testing.T) *env {
	t.Helper()
	schedule.ResetMetrics(nil)
	st := store.NewMemoryStore()

	agg := corereports.NewAggregator(st,
		corereports.Config{ReportThreshold: 1, MaxWaitMinutes: 60}, logger.NopLogger{})
	recCfg := recommend.Config{Routes: []recommend.Route{
		{Zone: "north", FacilityID: "fac-a", DistanceKm: 6},
	}}
	recCfg.SetDefaults()
	rec := recommend.NewRecommender(st, recCfg, logger.NopLogger{})
	fuelCfg := fuel.Config{RefuelThresholdPct: 20, RefuelPolicy: fuel.PolicyAvailable}
	fl := fuel.NewLedger(st, fuelCfg, logger.NopLogger{})
	var capCfg capacity.Config
	capCfg.SetDefaults()
	cl := capacity.NewLedger(st, capCfg, logger.NopLogger{})

	mgr, err := schedule.NewManager(st, agg, rec, fl, cl,
		schedule.Config{Zones: []string{"north"}, CheckIntervalSeconds: 60, StartDelayMinutes: 30},
		eventbus.New(), nil, logger.NopLogger{})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	mux := http.NewServeMux()
	NewHandler(st, mgr, rec, logger.NopLogger{}).Register(mux)
	return &env{st: st, mux: mux}
}

func (e *env) seed(t *testing.T) {
	t.Helper()
	e.st.PutVehicle(model.Vehicle{ID: "truck-1", Status: model.VehicleAvailable,
		FuelEfficiencyKmPerL: 10, TankCapacityL: 150, CurrentFuelL: 120})
	e.st.PutFacility(model.Facility{ID: "fac-a", MaxCapacityKg: 1000,
		Composition: model.Composition{"plastic": 50, "paper": 50}})
	e.st.PutReport(model.Report{ID: "r1", Zone: "north", Status: model.ReportNew,
		CreatedAt: time.Now()})
}

func (e *env) do(method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeRun(t *testing.T, rec *httptest.ResponseRecorder) model.Run {
	t.Helper()
	var run model.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	return run
}

func TestCreateRunEndpoint(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	rec := e.do(http.MethodPost, "/api/runs", `{"zone":"north"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	run := decodeRun(t, rec)
	if run.Zone != "north" || run.VehicleID != "truck-1" || run.Status != model.RunScheduled {
		t.Fatalf("unexpected run %+v", run)
	}

	rec = e.do(http.MethodGet, "/api/runs/"+run.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}
	rec = e.do(http.MethodGet, "/api/runs/"+run.ID+"/reports", "")
	var reps []model.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &reps); err != nil {
		t.Fatalf("decode reports: %v", err)
	}
	if len(reps) != 1 || reps[0].RunID != run.ID {
		t.Fatalf("unexpected bound reports %+v", reps)
	}
}

func TestCreateRunBelowThreshold(t *testing.T) {
	e := newEnv(t)
	// No reports filed.
	rec := e.do(http.MethodPost, "/api/runs", `{"zone":"north"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "threshold not crossed") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCreateRunNoVehicle(t *testing.T) {
	e := newEnv(t)
	e.st.PutReport(model.Report{ID: "r1", Zone: "north", Status: model.ReportNew,
		CreatedAt: time.Now()})

	rec := e.do(http.MethodPost, "/api/runs", `{"zone":"north"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateRunRequiresZone(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodPost, "/api/runs", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestRunLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	run := decodeRun(t, e.do(http.MethodPost, "/api/runs", `{"zone":"north"}`))

	// Scheduled start is 30 minutes out; advancing without override conflicts.
	statusURL := fmt.Sprintf("/api/runs/%s/status", run.ID)
	rec := e.do(http.MethodPatch, statusURL, `{"status":"in-progress"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("early start must 409, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = e.do(http.MethodPatch, statusURL, `{"status":"in-progress","override":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("override start: %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeRun(t, rec); got.Status != model.RunInProgress {
		t.Fatalf("unexpected status %v", got.Status)
	}

	rec = e.do(http.MethodPatch, statusURL, `{
		"status":"completed",
		"actual_distance_km":100,
		"fuel_consumed_liters":10,
		"fuel_cost":25,
		"weight":150,
		"composition":{"plastic":60,"paper":40}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeRun(t, rec); got.Status != model.RunCompleted {
		t.Fatalf("unexpected status %v", got.Status)
	}

	v, _ := e.st.Vehicle("truck-1")
	if v.CurrentFuelL != 110 || v.Status != model.VehicleAvailable {
		t.Fatalf("completion side effects missing: %+v", v)
	}

	// A terminal run rejects further transitions.
	rec = e.do(http.MethodPatch, statusURL, `{"status":"cancelled","reason":"too late"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("cancel after completion must 409, got %d", rec.Code)
	}
}

func TestTransitionValidation(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	run := decodeRun(t, e.do(http.MethodPost, "/api/runs", `{"zone":"north"}`))
	statusURL := fmt.Sprintf("/api/runs/%s/status", run.ID)

	rec := e.do(http.MethodPatch, statusURL, `{"status":"bogus"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown status must 400, got %d", rec.Code)
	}
	rec = e.do(http.MethodPatch, statusURL, `{"status":"scheduled"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("scheduled target must 422, got %d", rec.Code)
	}
	rec = e.do(http.MethodPatch, "/api/runs/missing/status", `{"status":"cancelled"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown run must 404, got %d", rec.Code)
	}
}

func TestListRunsByZone(t *testing.T) {
	e := newEnv(t)
	e.seed(t)
	decodeRun(t, e.do(http.MethodPost, "/api/runs", `{"zone":"north"}`))

	rec := e.do(http.MethodGet, "/api/runs?zone=north", "")
	var runs []model.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
}

func TestRecommendationEndpoint(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	rec := e.do(http.MethodGet, "/api/zones/north/recommendation", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var rc recommend.Recommendation
	if err := json.Unmarshal(rec.Body.Bytes(), &rc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rc.VehicleID != "truck-1" || rc.FacilityID != "fac-a" {
		t.Fatalf("unexpected recommendation %+v", rc)
	}

	e.st.PutVehicle(model.Vehicle{ID: "truck-1", Status: model.VehicleMaintenance,
		FuelEfficiencyKmPerL: 10, TankCapacityL: 150, CurrentFuelL: 120})
	rec = e.do(http.MethodGet, "/api/zones/north/recommendation", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no vehicle must 404, got %d", rec.Code)
	}

	rec = e.do(http.MethodGet, "/api/zones/unrouted/recommendation", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unrouted zone must 400, got %d", rec.Code)
	}
}

func TestDeleteCancelsRun(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	rec := e.do(http.MethodPost, "/api/runs", `{"zone":"north"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d: %s", rec.Code, rec.Body.String())
	}
	run := decodeRun(t, rec)

	rec = e.do(http.MethodDelete, "/api/runs/"+run.ID+"?reason=flooded+road", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeRun(t, rec)
	if got.Status != model.RunCancelled || got.CancelReason != "flooded road" {
		t.Fatalf("unexpected run %+v", got)
	}
	v, _ := e.st.Vehicle("truck-1")
	if v.Status != model.VehicleAvailable {
		t.Fatalf("vehicle not released: %v", v.Status)
	}

	if rec := e.do(http.MethodDelete, "/api/runs/"+run.ID, ""); rec.Code != http.StatusConflict {
		t.Fatalf("second delete must conflict, got %d", rec.Code)
	}
	if rec := e.do(http.MethodDelete, "/api/runs/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown run must 404, got %d", rec.Code)
	}
}
