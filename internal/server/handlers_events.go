package server

import (
	"net/http"
	"time"

	"github.com/jonathan/hiring-pipeline/internal/events"
)

const keepAliveInterval = 25 * time.Second

// handleEvents streams change events as Server-Sent Events. An optional
// application_id query value restricts the stream to one application.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	appID, err := queryUUID(r, "application_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// The server-wide write timeout would cut the stream
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	var filter events.Filter
	if appID != nil {
		filter = events.ForApplication(*appID)
	}
	sub := s.hub.Subscribe(filter)
	defer sub.Close()

	w.WriteHeader(http.StatusOK)
	if err := sse.WriteComment("connected"); err != nil {
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := sse.WriteEvent(string(ev.EntityKind), ev.EntityID, ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		}
	}
}
