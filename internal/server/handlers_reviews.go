package server

import (
	"net/http"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

// SetFlagRequest sets one review checklist item.
type SetFlagRequest struct {
	Value bool `json:"value"`
}

// CompleteReviewRequest completes the review, optionally bypassing the checklist.
type CompleteReviewRequest struct {
	Override bool `json:"override"`
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.engine.GetReview(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleSetReviewFlag(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req SetFlagRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.engine.SetReviewFlag(r.Context(), actorOf(r).ID, id, types.ReviewFlag(r.PathValue("flag")), req.Value)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleCompleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req CompleteReviewRequest
	if err := decodeJSON(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.engine.CompleteReview(r.Context(), actorOf(r).ID, id, req.Override)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}
