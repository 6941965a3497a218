package fleet

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kdarko/wastedispatch/core/events"
	"github.com/kdarko/wastedispatch/core/fuel"
	"github.com/kdarko/wastedispatch/core/logger"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/store"
	"github.com/kdarko/wastedispatch/internal/eventbus"
)

// vehicleView decorates a vehicle with its derived fuel fields for display.
type vehicleView struct {
	model.Vehicle
	FuelPercentage   int     `json:"fuel_percentage"`
	EstimatedRangeKm float64 `json:"estimated_range_km"`
}

// Handler exposes the fleet and the fuel ledger over HTTP.
type Handler struct {
	st     store.Store
	ledger *fuel.Ledger
	bus    eventbus.EventBus
	log    logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(st store.Store, ledger *fuel.Ledger, bus eventbus.EventBus, log logger.Logger) *Handler {
	return &Handler{st: st, ledger: ledger, bus: bus, log: log}
}

// Register mounts the fleet routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/vehicles", h.list)
	mux.HandleFunc("GET /api/vehicles/{id}", h.get)
	mux.HandleFunc("GET /api/vehicles/{id}/fuel-logs", h.fuelLogs)
	mux.HandleFunc("POST /api/vehicles/{id}/fuel-logs", h.logTrip)
	mux.HandleFunc("POST /api/vehicles/{id}/refuel", h.refuel)
	mux.HandleFunc("POST /api/vehicles/{id}/fuel-plan", h.fuelPlan)
	mux.HandleFunc("GET /api/fuel/analytics", h.analytics)
}

func view(v model.Vehicle) vehicleView {
	return vehicleView{
		Vehicle:          v,
		FuelPercentage:   v.FuelPercentageDisplay(),
		EstimatedRangeKm: v.EstimatedRangeKm(),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	vehicles := h.st.Vehicles()
	out := make([]vehicleView, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, view(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	v, err := h.st.Vehicle(r.PathValue("id"))
	if err != nil {
		http.Error(w, "vehicle not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view(v))
}

func (h *Handler) fuelLogs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.st.Vehicle(id); err != nil {
		http.Error(w, "vehicle not found", http.StatusNotFound)
		return
	}
	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = n
	}
	since := time.Now().AddDate(0, 0, -days)
	writeJSON(w, http.StatusOK, h.st.FuelLogs(id, since))
}

// logTrip records a manually-entered trip leg outside a run, for example a
// depot transfer.
func (h *Handler) logTrip(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in struct {
		RunID         string  `json:"run_id"`
		DistanceKm    float64 `json:"distance_km"`
		FuelConsumedL float64 `json:"fuel_consumed_liters"`
		Cost          float64 `json:"cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	res, err := h.ledger.Reconcile(id, in.RunID, in.DistanceKm, in.FuelConsumedL, in.Cost)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "vehicle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if res.NeedsRefuel && h.bus != nil {
		h.bus.Publish(events.NeedsRefuel{Vehicle: res.Vehicle})
	}
	writeJSON(w, http.StatusCreated, res.Entry)
}

func (h *Handler) refuel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in struct {
		Liters float64 `json:"liters"`
		Cost   float64 `json:"cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	v, err := h.ledger.Refuel(id, in.Liters, in.Cost)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "vehicle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, view(v))
}

func (h *Handler) fuelPlan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in struct {
		DistanceKm float64 `json:"distance_km"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	p, err := h.ledger.PlannedConsumption(id, in.DistanceKm)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "vehicle not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	days := 0
	if d := r.URL.Query().Get("period_days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil {
			http.Error(w, "invalid period_days", http.StatusBadRequest)
			return
		}
		days = n
	}
	writeJSON(w, http.StatusOK, h.ledger.Analytics(days, r.URL.Query().Get("vehicle_id")))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
