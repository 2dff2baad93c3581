package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iconidentify/groupgrab/internal/domain"
	"github.com/iconidentify/groupgrab/internal/service"
)

const maxActivityLimit = 500

// ActivityReader exposes recently processed URLs.
type ActivityReader interface {
	Recent(limit int, state domain.URLState) []service.ActivityEntry
}

// ActivityHandler serves the recent-outcome feed.
type ActivityHandler struct {
	activity ActivityReader
	logger   *slog.Logger
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(activity ActivityReader, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity, logger: logger}
}

// ActivityResponse is the JSON body of GET /api/v1/activity.
type ActivityResponse struct {
	Entries []service.ActivityEntry `json:"entries"`
	Count   int                     `json:"count"`
}

func (h *ActivityHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *ActivityHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// Recent handles GET /api/v1/activity?limit=&state=.
func (h *ActivityHandler) Recent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxActivityLimit)
	}

	state := domain.URLState(q.Get("state"))
	switch state {
	case "", domain.URLStateRecorded, domain.URLStateSkipped, domain.URLStateFailed:
	default:
		h.writeError(w, http.StatusBadRequest, "state must be recorded, skipped or failed")
		return
	}

	entries := h.activity.Recent(limit, state)
	if entries == nil {
		entries = []service.ActivityEntry{}
	}
	h.writeJSON(w, http.StatusOK, ActivityResponse{Entries: entries, Count: len(entries)})
}
