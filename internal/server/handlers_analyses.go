package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// AnalysisRequest triggers one analysis.
type AnalysisRequest struct {
	Kind     types.AnalysisKind `json:"kind"`
	InputRef string             `json:"input_ref"`
}

// ListAnalysesResponse lists the analysis records of an application.
type ListAnalysesResponse struct {
	Analyses []types.AnalysisRecord `json:"analyses"`
}

// handleRequestAnalysis claims and starts an analysis. By default it returns
// 202 with the processing record; with ?wait=true it returns the terminal
// record. A duplicate trigger is reported as 409 with the in-flight record.
func (s *Server) handleRequestAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body AnalysisRequest
	if err := decodeJSON(r, &body, true); err != nil {
		s.fail(w, r, err)
		return
	}
	req := pipeline.AnalysisRequest{Actor: actorOf(r).ID, ApplicationID: id, Kind: body.Kind, InputRef: body.InputRef}

	if wantsSync(r) {
		rec, err := s.orch.ExecuteAnalysis(r.Context(), req)
		if err != nil {
			s.analysisConflict(w, r, id, body.Kind, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, rec)
		return
	}

	rec, err := s.orch.RequestAnalysis(r.Context(), req)
	if err != nil {
		s.analysisConflict(w, r, id, body.Kind, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, rec)
}

// analysisConflict writes err, attaching the in-flight record to duplicate triggers.
func (s *Server) analysisConflict(w http.ResponseWriter, r *http.Request, id uuid.UUID, kind types.AnalysisKind, err error) {
	if !errors.Is(err, pipeline.ErrAlreadyInProgress) {
		s.fail(w, r, err)
		return
	}
	rec, getErr := s.orch.GetAnalysis(r.Context(), id, kind)
	if getErr != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusConflict, map[string]any{
		"error":    err.Error(),
		"code":     errorCode(err),
		"analysis": rec,
	})
}

func (s *Server) handleAnalyzeDocuments(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	recs, err := s.orch.AnalyzeDocuments(r.Context(), actorOf(r).ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []types.AnalysisRecord{}
	}
	s.jsonResponse(w, http.StatusAccepted, ListAnalysesResponse{Analyses: recs})
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	recs, err := s.orch.ListAnalyses(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []types.AnalysisRecord{}
	}
	s.jsonResponse(w, http.StatusOK, ListAnalysesResponse{Analyses: recs})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	kind := types.AnalysisKind(r.PathValue("kind"))
	if !kind.Valid() {
		s.fail(w, r, &errBadRequest{Message: "invalid kind"})
		return
	}
	rec, err := s.orch.GetAnalysis(r.Context(), id, kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleRequestEvaluation starts a candidate evaluation: 202 by default, the
// updated lineage with ?wait=true.
func (s *Server) handleRequestEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	actor := actorOf(r).ID

	if wantsSync(r) {
		lineage, err := s.orch.ExecuteCandidateEvaluation(r.Context(), actor, id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, lineage)
		return
	}

	if err := s.orch.RequestCandidateEvaluation(r.Context(), actor, id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "processing"})
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	lineage, err := s.orch.GetEvaluation(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, lineage)
}
