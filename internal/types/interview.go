package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// InterviewStatus is the state of a scheduled interview.
type InterviewStatus string

// Interview statuses
const (
	InterviewScheduled   InterviewStatus = "scheduled"
	InterviewRescheduled InterviewStatus = "rescheduled"
	InterviewCancelled   InterviewStatus = "cancelled"
	InterviewCompleted   InterviewStatus = "completed"
)

// InterviewType is the interview modality.
type InterviewType string

// Interview modalities
const (
	InterviewVideo  InterviewType = "video"
	InterviewPhone  InterviewType = "phone"
	InterviewOnsite InterviewType = "onsite"
)

// Interview is a scheduled interview for an application.
type Interview struct {
	ID            uuid.UUID       `json:"id"`
	ApplicationID uuid.UUID       `json:"application_id"`
	Status        InterviewStatus `json:"status"`
	ScheduledAt   time.Time       `json:"scheduled_at"`
	Type          InterviewType   `json:"interview_type"`
	Location      string          `json:"location,omitempty"`
	MeetingLink   string          `json:"meeting_link,omitempty"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InterviewHistoryEntry is an append-only record of one interview change.
type InterviewHistoryEntry struct {
	ID           uuid.UUID       `json:"id"`
	InterviewID  uuid.UUID       `json:"interview_id"`
	ChangeType   InterviewStatus `json:"change_type"`
	PreviousDate *time.Time      `json:"previous_date,omitempty"`
	NewDate      *time.Time      `json:"new_date,omitempty"`
	PreviousType *InterviewType  `json:"previous_type,omitempty"`
	NewType      *InterviewType  `json:"new_type,omitempty"`
	ChangedBy    uuid.UUID       `json:"changed_by"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// InterviewInput holds the fields for scheduling or rescheduling an interview.
type InterviewInput struct {
	ScheduledAt time.Time     `json:"scheduled_at" validate:"required"`
	Type        InterviewType `json:"interview_type" validate:"required,oneof=video phone onsite"`
	Location    string        `json:"location,omitempty"`
	MeetingLink string        `json:"meeting_link,omitempty" validate:"omitempty,url"`
	Notes       string        `json:"notes,omitempty"`
}

// Validate validates the InterviewInput using the validator.
func (i *InterviewInput) Validate() error {
	validate := validator.New()
	return validate.Struct(i)
}
