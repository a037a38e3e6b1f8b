package types

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind names the kind of entity a change event refers to.
type EntityKind string

// Entity kinds
const (
	EntityApplication       EntityKind = "application"
	EntityAnalysisRecord    EntityKind = "analysis_record"
	EntityEvaluationLineage EntityKind = "evaluation_lineage"
	EntityInterview         EntityKind = "interview"
	EntityHiringDecision    EntityKind = "hiring_decision"
	EntityReviewProgress    EntityKind = "review_progress"
	EntityNotification      EntityKind = "notification"
	// EntityAll tells a subscriber that signals were dropped and every view must be refetched.
	EntityAll EntityKind = "all"
)

// ChangeEvent signals that an entity changed. Subscribers refetch; it carries no diff.
type ChangeEvent struct {
	EntityKind    EntityKind `json:"entity_kind"`
	EntityID      string     `json:"entity_id"`
	ApplicationID uuid.UUID  `json:"application_id"`
	OccurredAt    time.Time  `json:"occurred_at"`
}
