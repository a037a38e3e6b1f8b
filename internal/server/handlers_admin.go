package server

import (
	"net/http"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

func (s *Server) handleResetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := s.orch.ResetAnalysis(r.Context(), actorOf(r).ID, id, types.AnalysisKind(r.PathValue("kind")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) handleResetEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	reset, err := s.orch.ResetCandidateEvaluation(r.Context(), actorOf(r).ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"reset": reset})
}
