package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dvloznov/goaltracker/internal/api/middleware"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/dvloznov/goaltracker/internal/notify"
)

// Subscriber hands out per-user change feeds. notify.Broadcaster implements it.
type Subscriber interface {
	Subscribe(uid string) (<-chan notify.Event, func())
}

// EventsHandler streams change notifications as server-sent events.
type EventsHandler struct {
	subscriber Subscriber
	keepAlive  time.Duration
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(subscriber Subscriber) *EventsHandler {
	return &EventsHandler{subscriber: subscriber, keepAlive: 30 * time.Second}
}

// Stream handles GET /api/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.WriteError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	events, cancel := h.subscriber.Subscribe(user.UID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log := logger.FromContext(r.Context())
	log.Debug().Msg("Event stream opened")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Msg("Event stream closed")
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(map[string]interface{}{"kind": ev.Kind, "at": ev.At})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		}
	}
}
