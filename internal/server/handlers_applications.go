package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/server/middleware"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// ListApplicationsResponse represents the response for listing applications
type ListApplicationsResponse struct {
	Applications []types.Application `json:"applications"`
	Count        int                 `json:"count"`
	Limit        int                 `json:"limit"`
}

// AssignRequest sets or clears the assigned recruiter.
type AssignRequest struct {
	RecruiterID *uuid.UUID `json:"recruiter_id"`
}

func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	var in types.NewApplication
	if err := decodeJSON(r, &in, true); err != nil {
		s.fail(w, r, err)
		return
	}
	if actor := actorOf(r); actor.Role == middleware.RoleCandidate {
		in.CandidateID = actor.ID
	}

	app, err := s.engine.SubmitApplication(r.Context(), &in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, app)
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	filter := types.ApplicationFilter{
		Status: types.Status(r.URL.Query().Get("status")),
		Limit:  parseQueryInt(r, "limit", 50, 200),
	}
	var err error
	if filter.JobID, err = queryUUID(r, "job_id"); err != nil {
		s.fail(w, r, err)
		return
	}
	if filter.AssignedTo, err = queryUUID(r, "assigned_to"); err != nil {
		s.fail(w, r, err)
		return
	}

	apps, err := s.engine.ListApplications(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if apps == nil {
		apps = []types.Application{}
	}
	s.jsonResponse(w, http.StatusOK, ListApplicationsResponse{Applications: apps, Count: len(apps), Limit: filter.Limit})
}

// application loads the application named by the id path value. Candidates
// only see their own applications.
func (s *Server) application(r *http.Request) (*types.Application, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}
	app, err := s.engine.GetApplication(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if actor := actorOf(r); actor.Role == middleware.RoleCandidate && app.CandidateID != actor.ID {
		return nil, pipeline.ErrNotFound
	}
	return app, nil
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.application(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, app)
}

func (s *Server) handleAssignRecruiter(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req AssignRequest
	if err := decodeJSON(r, &req, true); err != nil {
		s.fail(w, r, err)
		return
	}

	app, err := s.engine.AssignRecruiter(r.Context(), actorOf(r).ID, id, req.RecruiterID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, app)
}

func (s *Server) handleSendInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.engine.SendBusinessCaseInvitation(r.Context(), actorOf(r).ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

func (s *Server) handleSubmitBusinessCase(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	app, err := s.engine.SubmitBusinessCase(r.Context(), actorOf(r).ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, app)
}

func (s *Server) handleBeginReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	app, err := s.engine.BeginReview(r.Context(), actorOf(r).ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, app)
}
