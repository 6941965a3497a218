package facilities

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kdarko/wastedispatch/core/capacity"
	"github.com/kdarko/wastedispatch/core/events"
	"github.com/kdarko/wastedispatch/core/logger"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/store"
	"github.com/kdarko/wastedispatch/internal/eventbus"
)

// facilityView decorates a facility with its utilization for display.
type facilityView struct {
	model.Facility
	Utilization float64 `json:"utilization_pct"`
}

// Handler exposes recycling facilities and direct deliveries over HTTP.
type Handler struct {
	st     store.Store
	ledger *capacity.Ledger
	bus    eventbus.EventBus
	log    logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(st store.Store, ledger *capacity.Ledger, bus eventbus.EventBus, log logger.Logger) *Handler {
	return &Handler{st: st, ledger: ledger, bus: bus, log: log}
}

// Register mounts the facility routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/facilities", h.list)
	mux.HandleFunc("GET /api/facilities/{id}", h.get)
	mux.HandleFunc("POST /api/facilities/{id}/deliveries", h.deliver)
}

func view(f model.Facility) facilityView {
	return facilityView{Facility: f, Utilization: f.Utilization()}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	fs := h.st.Facilities()
	out := make([]facilityView, 0, len(fs))
	for _, f := range fs {
		out = append(out, view(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	f, err := h.st.Facility(r.PathValue("id"))
	if err != nil {
		http.Error(w, "facility not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view(f))
}

// deliver records a direct drop-off outside a collection run.
func (h *Handler) deliver(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in struct {
		WeightKg    float64           `json:"weight"`
		Composition model.Composition `json:"composition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	res, err := h.ledger.ApplyDelivery(id, in.WeightKg, in.Composition)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "facility not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.bus != nil {
		if res.OverCapacityKg > 0 {
			h.bus.Publish(events.OverCapacity{Facility: res.Facility, ExcessKg: res.OverCapacityKg})
		}
		if res.CrossedHighWater {
			h.bus.Publish(events.HighUtilization{Facility: res.Facility, Utilization: res.NewUtilization})
		}
	}
	out := struct {
		Facility       facilityView `json:"facility"`
		OverCapacityKg float64      `json:"over_capacity_kg,omitempty"`
	}{Facility: view(res.Facility), OverCapacityKg: res.OverCapacityKg}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
