package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kdarko/wastedispatch/config"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/recommend"
	"github.com/kdarko/wastedispatch/core/schedule"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Reports.ReportThreshold = 1
	cfg.Schedule.Zones = []string{"north"}
	cfg.Schedule.StartDelayMinutes = 0
	cfg.Recommend.Routes = []recommend.Route{
		{Zone: "north", FacilityID: "fac-a", DistanceKm: 6},
	}
	cfg.Fleet = []config.VehicleSeed{
		{ID: "truck-1", Type: "compactor", FuelEfficiencyKmPerL: 10,
			TankCapacityL: 150, CurrentFuelL: 120},
	}
	cfg.Facility = []config.FacilitySeed{
		{ID: "fac-a", Name: "Central", MaxCapacityKg: 1000,
			Composition: map[string]float64{"plastic": 50, "paper": 50}},
	}
	return cfg
}

func newService(t *testing.T) *Service {
	t.Helper()
	schedule.ResetMetrics(nil)
	svc, err := New(testConfig())
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	svc := newService(t)
	rec := do(svc.Handler(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestSeedValidation(t *testing.T) {
	cfg := testConfig()
	cfg.Fleet[0].CurrentFuelL = 500 // above tank capacity
	if _, err := New(cfg); err == nil {
		t.Fatal("invalid fleet seed must fail service construction")
	}
}

// The full collection cycle through the HTTP surface: a resident files a
// report, the dispatcher creates and starts a run, the driver completes it,
// and the fleet and facility state reflect the outcome.
func TestCollectionCycle(t *testing.T) {
	svc := newService(t)
	h := svc.Handler()

	rec := do(h, http.MethodPost, "/api/reports",
		`{"user_id":"u1","zone":"north","description":"bin full"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("file report: %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodPost, "/api/runs", `{"zone":"north"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create run: %d: %s", rec.Code, rec.Body.String())
	}
	var run model.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}

	statusURL := "/api/runs/" + run.ID + "/status"
	rec = do(h, http.MethodPatch, statusURL, `{"status":"in-progress","override":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("start run: %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(h, http.MethodPatch, statusURL, `{
		"status":"completed",
		"actual_distance_km":12,
		"fuel_consumed_liters":1.3,
		"weight":340,
		"composition":{"plastic":30,"paper":30,"organic":40}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete run: %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodGet, "/api/vehicles/truck-1", "")
	var v struct {
		Status         model.VehicleStatus `json:"status"`
		FuelPercentage int                 `json:"fuel_percentage"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode vehicle: %v", err)
	}
	if v.Status != model.VehicleAvailable || v.FuelPercentage != 79 {
		t.Fatalf("unexpected vehicle %+v", v)
	}

	rec = do(h, http.MethodGet, "/api/facilities/fac-a", "")
	var f struct {
		CurrentCapacityKg float64 `json:"current_capacity"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
		t.Fatalf("decode facility: %v", err)
	}
	if f.CurrentCapacityKg != 340 {
		t.Fatalf("delivery not applied: %.1f kg", f.CurrentCapacityKg)
	}

	// The report is resolved and the zone threshold is quiet again.
	rec = do(h, http.MethodGet, "/api/zones/north/status", "")
	var zs struct {
		PendingCount     int  `json:"pending_count"`
		ThresholdCrossed bool `json:"threshold_crossed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &zs); err != nil {
		t.Fatalf("decode zone status: %v", err)
	}
	if zs.PendingCount != 0 || zs.ThresholdCrossed {
		t.Fatalf("unexpected zone status %+v", zs)
	}
}
