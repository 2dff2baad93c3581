package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/iconidentify/groupgrab/internal/chat"
	"github.com/iconidentify/groupgrab/internal/service"
	"github.com/iconidentify/groupgrab/internal/worker"
)

const maxEventBody = 4 << 20

// EventQueue accepts chat events for ordered processing.
type EventQueue interface {
	Submit(ev chat.Event) (string, error)
	SubmitWait(ctx context.Context, ev chat.Event) (service.BatchReport, error)
}

// EventHandler receives events pushed by the chat bridge.
type EventHandler struct {
	queue  EventQueue
	logger *slog.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(queue EventQueue, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		queue:  queue,
		logger: logger,
	}
}

// AcceptedResponse is returned when an event is queued.
type AcceptedResponse struct {
	BatchID string `json:"batch_id"`
	Status  string `json:"status"`
}

func (h *EventHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *EventHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// Submit handles POST /api/v1/events. With ?wait=true the response carries
// the batch report once the event has been processed.
func (h *EventHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var ev chat.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody)).Decode(&ev); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid event body")
		return
	}
	if ev.Type == "" {
		h.writeError(w, http.StatusBadRequest, "event type is required")
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if wait {
		// Processing can outlast the server's write timeout.
		if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
			h.logger.Debug("cannot clear write deadline", "error", err)
		}
		report, err := h.queue.SubmitWait(r.Context(), ev)
		if err != nil {
			h.writeQueueError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, report)
		return
	}

	id, err := h.queue.Submit(ev)
	if err != nil {
		h.writeQueueError(w, err)
		return
	}

	h.logger.Debug("event queued", "batch_id", id, "type", ev.Type, "messages", len(ev.Messages))
	h.writeJSON(w, http.StatusAccepted, AcceptedResponse{BatchID: id, Status: "queued"})
}

func (h *EventHandler) writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, worker.ErrQueueFull):
		h.writeError(w, http.StatusServiceUnavailable, "event queue full")
	case errors.Is(err, worker.ErrStopped):
		h.writeError(w, http.StatusServiceUnavailable, "shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, http.StatusGatewayTimeout, "event not processed before deadline")
	default:
		h.logger.Error("failed to queue event", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to queue event")
	}
}
