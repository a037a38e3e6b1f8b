package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/hiring-pipeline/internal/pipeline"
)

// errBadRequest indicates a malformed request: bad path value, query or body.
type errBadRequest struct {
	Message string
}

func (e *errBadRequest) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		invalidTransition *pipeline.InvalidTransitionError
		validation        *pipeline.ValidationError
		interviewState    *pipeline.InterviewStateError
		badRequest        *errBadRequest
	)
	switch {
	case errors.As(err, &badRequest), errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &invalidTransition), errors.As(err, &interviewState):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrAlreadyInProgress),
		errors.Is(err, pipeline.ErrConcurrencyConflict),
		errors.Is(err, pipeline.ErrLineageFinalized):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrMissingBaselineEvaluation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is a stable machine-readable name for err, or "" for opaque errors.
func errorCode(err error) string {
	var (
		invalidTransition *pipeline.InvalidTransitionError
		validation        *pipeline.ValidationError
		interviewState    *pipeline.InterviewStateError
		badRequest        *errBadRequest
	)
	switch {
	case errors.As(err, &badRequest):
		return "bad_request"
	case errors.As(err, &validation):
		return "validation_failed"
	case errors.Is(err, pipeline.ErrNotFound):
		return "not_found"
	case errors.As(err, &invalidTransition):
		return "invalid_transition"
	case errors.As(err, &interviewState):
		return "invalid_interview_state"
	case errors.Is(err, pipeline.ErrAlreadyInProgress):
		return "already_in_progress"
	case errors.Is(err, pipeline.ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, pipeline.ErrLineageFinalized):
		return "lineage_finalized"
	case errors.Is(err, pipeline.ErrMissingBaselineEvaluation):
		return "missing_baseline_evaluation"
	}
	return ""
}
