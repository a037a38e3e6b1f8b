// Package pipeline implements the application lifecycle: the status state machine,
// the review gate, single-flight analysis orchestration and evaluation lineage.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

var (
	// ErrAlreadyInProgress is returned when an analysis or evaluation for the same key
	// is still processing. The call was a no-op.
	ErrAlreadyInProgress = errors.New("already in progress")

	// ErrMissingBaselineEvaluation is returned when an interview analysis is requested
	// before any candidate evaluation exists for the application.
	ErrMissingBaselineEvaluation = errors.New("no baseline candidate evaluation exists for this application")

	// ErrConcurrencyConflict is returned when a conditional write lost its race.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	// ErrNotFound is returned when the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLineageFinalized is returned when a candidate re-evaluation is requested after
	// the lineage has rolled forward to the post-interview stage.
	ErrLineageFinalized = errors.New("evaluation lineage is already at post_interview stage")
)

// InvalidTransitionError indicates an event that is not legal from the current status.
type InvalidTransitionError struct {
	From  types.Status
	Event Event
	// Reason is set when the event is legal from From but a precondition failed.
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition: %s from %s: %s", e.Event, e.From, e.Reason)
	}
	return fmt.Sprintf("invalid transition: %s is not allowed from %s", e.Event, e.From)
}

// InferenceError indicates the inference boundary returned a failure.
type InferenceError struct {
	Kind    string
	Message string
	Cause   error
}

func (e *InferenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("inference error (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("inference error (%s): %s", e.Kind, e.Message)
}

func (e *InferenceError) Unwrap() error {
	return e.Cause
}

// NotificationError indicates the notification boundary returned a failure.
type NotificationError struct {
	NotificationType types.NotificationType
	Message          string
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification error (%s): %s", e.NotificationType, e.Message)
}

// ValidationError indicates invalid caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
