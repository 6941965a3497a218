package fleet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kdarko/wastedispatch/core/events"
	"github.com/kdarko/wastedispatch/core/fuel"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/store"
	"github.com/kdarko/wastedispatch/infra/logger"
	"github.com/kdarko/wastedispatch/internal/eventbus"
)

func newServer(st *store.MemoryStore, bus eventbus.EventBus) *http.ServeMux {
	cfg := fuel.Config{RefuelThresholdPct: 20, RefuelPolicy: fuel.PolicyAvailable}
	ledger := fuel.NewLedger(st, cfg, logger.NopLogger{})
	mux := http.NewServeMux()
	NewHandler(st, ledger, bus, logger.NopLogger{}).Register(mux)
	return mux
}

func seedVehicle(st *store.MemoryStore, fuelL float64) {
	st.PutVehicle(model.Vehicle{
		ID: "truck-1", Status: model.VehicleOnRoute,
		FuelEfficiencyKmPerL: 10, TankCapacityL: 150, CurrentFuelL: fuelL,
	})
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	mux.ServeHTTP(rec, req)
	return rec
}

func TestListAndGetVehicles(t *testing.T) {
	st := store.NewMemoryStore()
	seedVehicle(st, 120)
	mux := newServer(st, nil)

	rec := do(mux, http.MethodGet, "/api/vehicles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var list []struct {
		ID               string  `json:"id"`
		FuelPercentage   int     `json:"fuel_percentage"`
		EstimatedRangeKm float64 `json:"estimated_range_km"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].FuelPercentage != 80 || list[0].EstimatedRangeKm != 1200 {
		t.Fatalf("unexpected listing %+v", list)
	}

	if rec := do(mux, http.MethodGet, "/api/vehicles/truck-1", ""); rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}
	if rec := do(mux, http.MethodGet, "/api/vehicles/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing vehicle must 404, got %d", rec.Code)
	}
}

func TestLogTrip(t *testing.T) {
	st := store.NewMemoryStore()
	seedVehicle(st, 120)
	bus := eventbus.New()
	sub := bus.Subscribe()
	mux := newServer(st, bus)

	rec := do(mux, http.MethodPost, "/api/vehicles/truck-1/fuel-logs",
		`{"distance_km":100,"fuel_consumed_liters":10,"cost":25}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var entry model.FuelLogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.Type != model.FuelEntryTrip || entry.ActualEfficiencyKmPerL != 10 {
		t.Fatalf("unexpected entry %+v", entry)
	}
	v, _ := st.Vehicle("truck-1")
	if v.CurrentFuelL != 110 {
		t.Fatalf("fuel not reconciled: %.1f", v.CurrentFuelL)
	}
	select {
	case ev := <-sub:
		t.Fatalf("no refuel event expected at 73%% fill, got %T", ev)
	default:
	}
}

func TestLogTripPublishesNeedsRefuel(t *testing.T) {
	st := store.NewMemoryStore()
	seedVehicle(st, 25)
	bus := eventbus.New()
	sub := bus.Subscribe()
	mux := newServer(st, bus)

	rec := do(mux, http.MethodPost, "/api/vehicles/truck-1/fuel-logs",
		`{"distance_km":50,"fuel_consumed_liters":5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	select {
	case ev := <-sub:
		if _, ok := ev.(events.NeedsRefuel); !ok {
			t.Fatalf("unexpected event %T", ev)
		}
	default:
		t.Fatal("NeedsRefuel not published")
	}
}

func TestLogTripValidation(t *testing.T) {
	st := store.NewMemoryStore()
	seedVehicle(st, 120)
	mux := newServer(st, nil)

	rec := do(mux, http.MethodPost, "/api/vehicles/truck-1/fuel-logs",
		`{"distance_km":-5,"fuel_consumed_liters":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative distance must 400, got %d", rec.Code)
	}
	rec = do(mux, http.MethodPost, "/api/vehicles/missing/fuel-logs",
		`{"distance_km":5,"fuel_consumed_liters":1}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing vehicle must 404, got %d", rec.Code)
	}
}

func TestRefuel(t *testing.T) {
	st := store.NewMemoryStore()
	seedVehicle(st, 100)
	mux := newServer(st, nil)

	rec := do(mux, http.MethodPost, "/api/vehicles/truck-1/refuel", `{"liters":30,"cost":45}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		FuelPercentage int `json:"fuel_percentage"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.FuelPercentage != 87 {
		t.Fatalf("expected 87%% after refuel, got %d", out.FuelPercentage)
	}

	rec = do(mux, http.MethodPost, "/api/vehicles/truck-1/refuel", `{"liters":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero refuel must 400, got %d", rec.Code)
	}
}

func TestFuelPlan(t *testing.T) {
	st := store.NewMemoryStore()
	seedVehicle(st, 8)
	mux := newServer(st, nil)

	rec := do(mux, http.MethodPost, "/api/vehicles/truck-1/fuel-plan", `{"distance_km":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var plan fuel.Plan
	if err := json.Unmarshal(rec.Body.Bytes(), &plan); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if plan.PlannedFuelL != 10 || plan.Sufficient || plan.FuelNeededL != 2 {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestFuelLogsListing(t *testing.T) {
	st := store.NewMemoryStore()
	seedVehicle(st, 120)
	mux := newServer(st, nil)

	do(mux, http.MethodPost, "/api/vehicles/truck-1/fuel-logs",
		`{"distance_km":100,"fuel_consumed_liters":10}`)

	rec := do(mux, http.MethodGet, "/api/vehicles/truck-1/fuel-logs", "")
	var logs []model.FuelLogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(logs))
	}

	rec = do(mux, http.MethodGet, "/api/vehicles/truck-1/fuel-logs?days=0", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("days=0 must 400, got %d", rec.Code)
	}
}

func TestAnalyticsEndpoint(t *testing.T) {
	st := store.NewMemoryStore()
	seedVehicle(st, 120)
	mux := newServer(st, nil)
	do(mux, http.MethodPost, "/api/vehicles/truck-1/fuel-logs",
		`{"distance_km":100,"fuel_consumed_liters":10,"cost":25}`)

	rec := do(mux, http.MethodGet, "/api/fuel/analytics?period_days=7&vehicle_id=truck-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var a fuel.Analytics
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(a.Vehicles) != 1 || a.Vehicles[0].Trips != 1 {
		t.Fatalf("unexpected analytics %+v", a)
	}

	rec = do(mux, http.MethodGet, "/api/fuel/analytics?period_days=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad period must 400, got %d", rec.Code)
	}
}
