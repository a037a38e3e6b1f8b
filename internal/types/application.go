// Package types provides the domain types shared by the hiring pipeline packages.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Status is the lifecycle state of an application.
type Status string

// Application statuses
const (
	StatusPending     Status = "pending"
	StatusBCQSent     Status = "bcq_sent"
	StatusUnderReview Status = "under_review"
	StatusReviewed    Status = "reviewed"
	StatusInterview   Status = "interview"
	StatusInterviewed Status = "interviewed"
	StatusHired       Status = "hired"
	StatusRejected    Status = "rejected"
)

// AllStatuses lists every application status in pipeline order.
var AllStatuses = []Status{
	StatusPending,
	StatusBCQSent,
	StatusUnderReview,
	StatusReviewed,
	StatusInterview,
	StatusInterviewed,
	StatusHired,
	StatusRejected,
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusHired || s == StatusRejected
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Application is one candidate's pursuit of one job.
type Application struct {
	ID                      uuid.UUID  `json:"id"`
	CandidateID             uuid.UUID  `json:"candidate_id"`
	CandidateName           string     `json:"candidate_name"`
	CandidateEmail          string     `json:"candidate_email"`
	JobID                   uuid.UUID  `json:"job_id"`
	Status                  Status     `json:"status"`
	CVDocumentRef           string     `json:"cv_document_ref,omitempty"`
	DISCDocumentRef         string     `json:"disc_document_ref,omitempty"`
	BusinessCaseCompleted   bool       `json:"business_case_completed"`
	BusinessCaseCompletedAt *time.Time `json:"business_case_completed_at,omitempty"`
	BCQInvitationSentAt     *time.Time `json:"bcq_invitation_sent_at,omitempty"`
	AssignedTo              *uuid.UUID `json:"assigned_to,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// NewApplication holds the fields supplied when a candidate applies.
type NewApplication struct {
	CandidateID     uuid.UUID `json:"candidate_id" validate:"required"`
	CandidateName   string    `json:"candidate_name" validate:"required,min=1"`
	CandidateEmail  string    `json:"candidate_email" validate:"required,email"`
	JobID           uuid.UUID `json:"job_id" validate:"required"`
	CVDocumentRef   string    `json:"cv_document_ref,omitempty"`
	DISCDocumentRef string    `json:"disc_document_ref,omitempty"`
}

// Validate validates the NewApplication using the validator.
func (a *NewApplication) Validate() error {
	validate := validator.New()
	return validate.Struct(a)
}

// ApplicationFilter holds optional filters for listing applications.
type ApplicationFilter struct {
	Status     Status
	JobID      *uuid.UUID
	AssignedTo *uuid.UUID
	Limit      int
}

// StatusUpdate is a conditional status write: it applies only while the stored
// status still equals From.
type StatusUpdate struct {
	ApplicationID       uuid.UUID
	From                Status
	To                  Status
	BCQInvitationSentAt *time.Time
}
