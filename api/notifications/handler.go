package notifications

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kdarko/wastedispatch/core/logger"
	"github.com/kdarko/wastedispatch/core/model"
	"github.com/kdarko/wastedispatch/core/notify"
	"github.com/kdarko/wastedispatch/core/store"
)

// Handler exposes per-role notifications over HTTP.
type Handler struct {
	fanout *notify.Fanout
	log    logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(fanout *notify.Fanout, log logger.Logger) *Handler {
	return &Handler{fanout: fanout, log: log}
}

// Register mounts the notification routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/notifications", h.list)
	mux.HandleFunc("PATCH /api/notifications/{id}", h.update)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	role, ok := model.ParseRole(r.URL.Query().Get("role"))
	if !ok {
		http.Error(w, "role query parameter is required", http.StatusBadRequest)
		return
	}
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	writeJSON(w, http.StatusOK, h.fanout.ByRole(role, includeArchived))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in struct {
		Read     bool `json:"read"`
		Archived bool `json:"archived"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	var (
		n   model.Notification
		err error
	)
	switch {
	case in.Archived:
		n, err = h.fanout.Archive(id)
	case in.Read:
		n, err = h.fanout.MarkRead(id)
	default:
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "notification not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
