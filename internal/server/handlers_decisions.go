package server

import (
	"net/http"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

// ListDecisionsResponse lists hiring decisions.
type ListDecisionsResponse struct {
	Decisions []types.HiringDecision `json:"decisions"`
}

// ListNotificationsResponse lists notification log entries, newest first.
type ListNotificationsResponse struct {
	Notifications []types.NotificationLogEntry `json:"notifications"`
}

func (s *Server) handleRecordDecision(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in types.DecisionInput
	if err := decodeJSON(r, &in, true); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.engine.RecordDecision(r.Context(), actorOf(r).ID, id, &in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, res)
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	decisions, err := s.engine.ListDecisions(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if decisions == nil {
		decisions = []types.HiringDecision{}
	}
	s.jsonResponse(w, http.StatusOK, ListDecisionsResponse{Decisions: decisions})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := s.engine.ListNotifications(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []types.NotificationLogEntry{}
	}
	s.jsonResponse(w, http.StatusOK, ListNotificationsResponse{Notifications: entries})
}

func (s *Server) handleResendNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entry, err := s.engine.ResendNotification(r.Context(), actorOf(r).ID, id, types.NotificationType(r.PathValue("type")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, entry)
}
