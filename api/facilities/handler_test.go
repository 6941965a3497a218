package facilities

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kdarko/wastedispatch/core/capacity"
	"github.com/kdarko/wastedispatch/core/events"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/store"
	"github.com/kdarko/wastedispatch/infra/logger"
	"github.com/kdarko/wastedispatch/internal/eventbus"
)

func newServer(st *store.MemoryStore, bus eventbus.EventBus) *http.ServeMux {
	var cfg capacity.Config
	cfg.SetDefaults()
	ledger := capacity.NewLedger(st, cfg, logger.NopLogger{})
	mux := http.NewServeMux()
	NewHandler(st, ledger, bus, logger.NopLogger{}).Register(mux)
	return mux
}

func seedFacility(st *store.MemoryStore, current, max float64) {
	st.PutFacility(model.Facility{
		ID: "fac-a", Name: "Central", MaxCapacityKg: max, CurrentCapacityKg: current,
		Composition: model.Composition{"plastic": 50, "paper": 50},
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

func TestListAndGetFacilities(t *testing.T) {
	st := store.NewMemoryStore()
	seedFacility(st, 250, 1000)
	mux := newServer(st, nil)

	rec := do(mux, http.MethodGet, "/api/facilities", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var list []struct {
		ID          string  `json:"id"`
		Utilization float64 `json:"utilization_pct"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].Utilization != 25 {
		t.Fatalf("unexpected listing %+v", list)
	}

	if rec := do(mux, http.MethodGet, "/api/facilities/fac-a", ""); rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}
	if rec := do(mux, http.MethodGet, "/api/facilities/missing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing facility must 404, got %d", rec.Code)
	}
}

func TestDirectDelivery(t *testing.T) {
	st := store.NewMemoryStore()
	seedFacility(st, 100, 1000)
	mux := newServer(st, nil)

	rec := do(mux, http.MethodPost, "/api/facilities/fac-a/deliveries",
		`{"weight":200,"composition":{"plastic":50,"paper":50}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Facility struct {
			CurrentCapacityKg float64 `json:"current_capacity"`
			Utilization       float64 `json:"utilization_pct"`
		} `json:"facility"`
		OverCapacityKg float64 `json:"over_capacity_kg"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Facility.CurrentCapacityKg != 300 || out.Facility.Utilization != 30 {
		t.Fatalf("unexpected facility %+v", out.Facility)
	}
	if out.OverCapacityKg != 0 {
		t.Fatalf("unexpected over-capacity %.1f", out.OverCapacityKg)
	}
}

func TestDeliveryOverCapacityPublishes(t *testing.T) {
	st := store.NewMemoryStore()
	seedFacility(st, 900, 1000)
	bus := eventbus.New()
	sub := bus.Subscribe()
	mux := newServer(st, bus)

	rec := do(mux, http.MethodPost, "/api/facilities/fac-a/deliveries",
		`{"weight":150,"composition":{"plastic":50,"paper":50}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("over-capacity delivery must be accepted, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		OverCapacityKg float64 `json:"over_capacity_kg"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.OverCapacityKg != 50 {
		t.Fatalf("expected 50 kg excess, got %.1f", out.OverCapacityKg)
	}

	var overCap bool
	for done := false; !done; {
		select {
		case ev := <-sub:
			if _, ok := ev.(events.OverCapacity); ok {
				overCap = true
			}
		default:
			done = true
		}
	}
	if !overCap {
		t.Fatal("OverCapacity not published")
	}
}

func TestDeliveryHighWaterPublishes(t *testing.T) {
	st := store.NewMemoryStore()
	seedFacility(st, 700, 1000)
	bus := eventbus.New()
	sub := bus.Subscribe()
	mux := newServer(st, bus)

	do(mux, http.MethodPost, "/api/facilities/fac-a/deliveries",
		`{"weight":150,"composition":{"plastic":50,"paper":50}}`)

	select {
	case ev := <-sub:
		if _, ok := ev.(events.HighUtilization); !ok {
			t.Fatalf("unexpected event %T", ev)
		}
	default:
		t.Fatal("HighUtilization not published")
	}
}

func TestDeliveryValidation(t *testing.T) {
	st := store.NewMemoryStore()
	seedFacility(st, 0, 1000)
	mux := newServer(st, nil)

	rec := do(mux, http.MethodPost, "/api/facilities/fac-a/deliveries",
		`{"weight":10,"composition":{"plastic":40}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid composition must 400, got %d", rec.Code)
	}
	rec = do(mux, http.MethodPost, "/api/facilities/missing/deliveries",
		`{"weight":10,"composition":{"plastic":100}}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing facility must 404, got %d", rec.Code)
	}
}
