package types

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType names a notification sent by the pipeline.
type NotificationType string

// Notification types
const (
	NotificationBCQInvitation        NotificationType = "bcq_invitation"
	NotificationInterviewScheduled   NotificationType = "interview_scheduled"
	NotificationInterviewRescheduled NotificationType = "interview_rescheduled"
	NotificationInterviewCancelled   NotificationType = "interview_cancelled"
	NotificationDecisionHired        NotificationType = "decision_hired"
	NotificationDecisionRejected     NotificationType = "decision_rejected"
)

// NotificationStatus is the delivery outcome of a notification.
type NotificationStatus string

// Notification statuses
const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

// NotificationLogEntry is an append-only record of one notification attempt.
type NotificationLogEntry struct {
	ID               uuid.UUID          `json:"id"`
	ApplicationID    uuid.UUID          `json:"application_id"`
	NotificationType NotificationType   `json:"notification_type"`
	RecipientEmail   string             `json:"recipient_email"`
	Subject          string             `json:"subject"`
	Status           NotificationStatus `json:"status"`
	ErrorMessage     *string            `json:"error_message,omitempty"`
	SentBy           uuid.UUID          `json:"sent_by"`
	SentAt           time.Time          `json:"sent_at"`
}
