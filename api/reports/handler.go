package reports

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kdarko/wastedispatch/core/events"
	"github.com/kdarko/wastedispatch/core/logger"
	"github.com/kdarko/wastedispatch/core/model"
	corereports "github.com/kdarko/wastedispatch/core/reports"
	"github.com/kdarko/wastedispatch/core/store"
	"github.com/kdarko/wastedispatch/internal/eventbus"
)

// Handler exposes report filing and zone threshold status over HTTP.
type Handler struct {
	st  store.Store
	agg *corereports.Aggregator
	bus eventbus.EventBus
	log logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(st store.Store, agg *corereports.Aggregator, bus eventbus.EventBus, log logger.Logger) *Handler {
	return &Handler{st: st, agg: agg, bus: bus, log: log}
}

// Register mounts the report routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/reports", h.create)
	mux.HandleFunc("GET /api/reports", h.list)
	mux.HandleFunc("GET /api/reports/{id}", h.get)
	mux.HandleFunc("GET /api/zones/{zone}/status", h.zoneStatus)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID      string         `json:"user_id"`
		Zone        string         `json:"zone"`
		Description string         `json:"description"`
		Location    model.Location `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if in.Zone == "" {
		http.Error(w, "zone is required", http.StatusBadRequest)
		return
	}
	rep := model.Report{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Zone:        in.Zone,
		Status:      model.ReportNew,
		Description: in.Description,
		Location:    in.Location,
		CreatedAt:   time.Now(),
	}
	h.st.PutReport(rep)
	if h.bus != nil {
		h.bus.Publish(events.ReportFiled{Report: rep})
	}
	h.log.Infof("report %s filed in zone %s", rep.ID, rep.Zone)
	writeJSON(w, http.StatusCreated, rep)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	zone := r.URL.Query().Get("zone")
	if zone == "" {
		http.Error(w, "zone query parameter is required", http.StatusBadRequest)
		return
	}
	status := model.ReportNew
	if s := r.URL.Query().Get("status"); s != "" {
		st, ok := model.ParseReportStatus(s)
		if !ok {
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}
		status = st
	}
	writeJSON(w, http.StatusOK, h.st.ReportsByZone(zone, status))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	rep, err := h.st.Report(r.PathValue("id"))
	if err != nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) zoneStatus(w http.ResponseWriter, r *http.Request) {
	zone := r.PathValue("zone")
	tally := h.agg.Tally(zone, time.Now())
	out := struct {
		Zone             string  `json:"zone"`
		PendingCount     int     `json:"pending_count"`
		OldestPendingMin float64 `json:"oldest_pending_minutes"`
		ThresholdCrossed bool    `json:"threshold_crossed"`
	}{
		Zone:             tally.Zone,
		PendingCount:     tally.PendingCount,
		OldestPendingMin: tally.OldestPendingAge.Minutes(),
		ThresholdCrossed: h.agg.ThresholdCrossed(tally),
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
