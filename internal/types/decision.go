package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Decision is the outcome recorded for an application.
type Decision string

// Decisions
const (
	DecisionHired    Decision = "hired"
	DecisionRejected Decision = "rejected"
	DecisionOnHold   Decision = "on_hold"
)

// HiringDecision is an append-only decision row. The most recent one is authoritative.
type HiringDecision struct {
	ID              uuid.UUID  `json:"id"`
	ApplicationID   uuid.UUID  `json:"application_id"`
	Decision        Decision   `json:"decision"`
	DecidedBy       uuid.UUID  `json:"decided_by"`
	Reasoning       string     `json:"reasoning"`
	SalaryOffered   *float64   `json:"salary_offered,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// DecisionInput holds the fields for recording a hiring decision.
type DecisionInput struct {
	Decision        Decision   `json:"decision" validate:"required,oneof=hired rejected on_hold"`
	Reasoning       string     `json:"reasoning" validate:"required,min=1"`
	SalaryOffered   *float64   `json:"salary_offered,omitempty" validate:"omitempty,gte=0"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
}

// Validate validates the DecisionInput using the validator.
func (d *DecisionInput) Validate() error {
	validate := validator.New()
	return validate.Struct(d)
}
