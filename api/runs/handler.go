package runs

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kdarko/wastedispatch/core/logger"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/recommend"
	"github.com/kdarko/wastedispatch/core/schedule"
	"github.com/kdarko/wastedispatch/core/store"
)

// Handler exposes the collection-run lifecycle over HTTP.
type Handler struct {
	st  store.Store
	mgr *schedule.Manager
	rec *recommend.Recommender
	log logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(st store.Store, mgr *schedule.Manager, rec *recommend.Recommender, log logger.Logger) *Handler {
	return &Handler{st: st, mgr: mgr, rec: rec, log: log}
}

// Register mounts the run routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/runs", h.create)
	mux.HandleFunc("GET /api/runs", h.list)
	mux.HandleFunc("GET /api/runs/{id}", h.get)
	mux.HandleFunc("GET /api/runs/{id}/reports", h.reports)
	mux.HandleFunc("PATCH /api/runs/{id}/status", h.transition)
	mux.HandleFunc("DELETE /api/runs/{id}", h.cancel)
	mux.HandleFunc("GET /api/zones/{zone}/recommendation", h.recommendation)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Zone string `json:"zone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Zone == "" {
		http.Error(w, "zone is required", http.StatusBadRequest)
		return
	}
	run, err := h.mgr.CreateRun(r.Context(), in.Zone)
	switch {
	case errors.Is(err, schedule.ErrDispatchConflict):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, recommend.ErrNoVehicleAvailable):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	case run == nil:
		writeJSON(w, http.StatusOK, map[string]string{"result": "threshold not crossed"})
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.st.Runs(r.URL.Query().Get("zone")))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	run, err := h.st.Run(r.PathValue("id"))
	if err != nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) reports(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.st.Run(id); err != nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.st.ReportsByRun(id))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in struct {
		Status   string `json:"status"`
		Override bool   `json:"override"`
		Reason   string `json:"reason"`
		schedule.CompletionInput
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	target, ok := model.ParseRunStatus(in.Status)
	if !ok {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	var (
		run model.Run
		err error
	)
	switch target {
	case model.RunInProgress:
		run, err = h.mgr.Advance(id, target, in.Override)
	case model.RunCompleted:
		run, err = h.mgr.Complete(id, in.CompletionInput)
	case model.RunCancelled:
		run, err = h.mgr.Cancel(id, in.Reason)
	default:
		http.Error(w, "invalid target status", http.StatusUnprocessableEntity)
		return
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "run not found", http.StatusNotFound)
	case errors.Is(err, schedule.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, schedule.ErrNotStarted):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

// cancel is the DELETE form of cancellation; the reason comes from the query
// string since DELETE bodies are uncommon.
func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	run, err := h.mgr.Cancel(r.PathValue("id"), r.URL.Query().Get("reason"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "run not found", http.StatusNotFound)
	case errors.Is(err, schedule.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

func (h *Handler) recommendation(w http.ResponseWriter, r *http.Request) {
	rc, err := h.rec.Recommend(r.PathValue("zone"), nil)
	if errors.Is(err, recommend.ErrNoVehicleAvailable) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
