package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/predictify/predictifyd/internal/domain"
	"github.com/predictify/predictifyd/internal/events"
)

// EventsHandler serves replay access to the durable event stream.
type EventsHandler struct {
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(bus domain.SignalBus, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{bus: bus, logger: logger}
}

// streamEvent is one replayed event with its stream position.
type streamEvent struct {
	ID    string          `json:"id"`
	Event json.RawMessage `json:"event"`
}

// List replays lifecycle events from the durable stream. Pass the last seen
// stream ID in `after` to resume; "0" reads from the beginning.
// GET /api/events?after=0&limit=100
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after")
	if after == "" {
		after = "0"
	}
	opts := parseListOpts(r)

	msgs, err := h.bus.StreamRead(r.Context(), events.StreamEvents, after, opts.Limit)
	if err != nil {
		writeServiceError(w, r, h.logger, "read events", err)
		return
	}

	out := make([]streamEvent, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, streamEvent{ID: m.ID, Event: json.RawMessage(m.Payload)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}
