package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

type interviewAction func(ctx context.Context, actor, interviewID uuid.UUID, notes string) (*pipeline.InterviewResult, error)

// InterviewNotesRequest carries optional notes for cancel and complete.
type InterviewNotesRequest struct {
	Notes string `json:"notes"`
}

// ListInterviewsResponse lists interviews.
type ListInterviewsResponse struct {
	Interviews []types.Interview `json:"interviews"`
}

// InterviewHistoryResponse lists the changes of one interview.
type InterviewHistoryResponse struct {
	History []types.InterviewHistoryEntry `json:"history"`
}

func (s *Server) handleScheduleInterview(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in types.InterviewInput
	if err := decodeJSON(r, &in, true); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.engine.ScheduleInterview(r.Context(), actorOf(r).ID, id, &in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, res)
}

func (s *Server) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	app, err := s.application(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ivs, err := s.engine.ListInterviews(r.Context(), app.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ivs == nil {
		ivs = []types.Interview{}
	}
	s.jsonResponse(w, http.StatusOK, ListInterviewsResponse{Interviews: ivs})
}

func (s *Server) handleRescheduleInterview(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in types.InterviewInput
	if err := decodeJSON(r, &in, true); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.engine.RescheduleInterview(r.Context(), actorOf(r).ID, id, &in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleCancelInterview(w http.ResponseWriter, r *http.Request) {
	s.interviewNotesAction(w, r, s.engine.CancelInterview)
}

func (s *Server) handleCompleteInterview(w http.ResponseWriter, r *http.Request) {
	s.interviewNotesAction(w, r, s.engine.MarkInterviewCompleted)
}

func (s *Server) interviewNotesAction(w http.ResponseWriter, r *http.Request, action interviewAction) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req InterviewNotesRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := action(r.Context(), actorOf(r).ID, id, req.Notes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleInterviewHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	history, err := s.engine.InterviewHistory(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if history == nil {
		history = []types.InterviewHistoryEntry{}
	}
	s.jsonResponse(w, http.StatusOK, InterviewHistoryResponse{History: history})
}
