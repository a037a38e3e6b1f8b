package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

var notificationSubjects = map[types.NotificationType]string{
	types.NotificationBCQInvitation:        "Your business case invitation",
	types.NotificationInterviewScheduled:   "Your interview has been scheduled",
	types.NotificationInterviewRescheduled: "Your interview has been rescheduled",
	types.NotificationInterviewCancelled:   "Your interview has been cancelled",
	types.NotificationDecisionHired:        "Your application: offer",
	types.NotificationDecisionRejected:     "Your application: update",
}

// NotificationSubject returns the subject line logged for a notification type.
func NotificationSubject(ntype types.NotificationType) string {
	if s, ok := notificationSubjects[ntype]; ok {
		return s
	}
	return string(ntype)
}

// dispatch calls the notification boundary and appends exactly one log entry for
// the attempt. A delivery failure is recorded in the entry and does not fail the
// caller; only a log write failure is returned.
func (e *Engine) dispatch(ctx context.Context, actor uuid.UUID, app *types.Application, ntype types.NotificationType, extra map[string]string) (*types.NotificationLogEntry, error) {
	// The state change that triggered the notification has already committed.
	ctx = context.WithoutCancel(ctx)
	subject := NotificationSubject(ntype)
	params := map[string]string{
		"candidate_name":  app.CandidateName,
		"recipient_email": app.CandidateEmail,
		"subject":         subject,
		"application_id":  app.ID.String(),
	}
	for k, v := range extra {
		params[k] = v
	}

	var resp NotificationResponse
	if e.notifier == nil {
		resp = NotificationResponse{Error: "notifications are not configured"}
	} else {
		resp = e.notifier.Notify(ctx, NotificationRequest{
			ApplicationID:    app.ID,
			NotificationType: ntype,
			TemplateParams:   params,
		})
	}

	entry := &types.NotificationLogEntry{
		ID:               uuid.New(),
		ApplicationID:    app.ID,
		NotificationType: ntype,
		RecipientEmail:   app.CandidateEmail,
		Subject:          subject,
		Status:           types.NotificationSent,
		SentBy:           actor,
		SentAt:           e.now(),
	}
	if !resp.Success {
		nerr := &NotificationError{NotificationType: ntype, Message: resp.Error}
		msg := nerr.Error()
		entry.Status = types.NotificationFailed
		entry.ErrorMessage = &msg
		e.log.Warn("notification failed", "application_id", app.ID, "type", ntype, "error", resp.Error)
	}

	saved, err := e.store.AppendNotification(ctx, entry)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, types.EntityNotification, saved.ID.String(), app.ID)
	return saved, nil
}

func interviewParams(iv *types.Interview) map[string]string {
	params := map[string]string{
		"interview_id":   iv.ID.String(),
		"interview_date": iv.ScheduledAt.UTC().Format(time.RFC3339),
		"interview_type": string(iv.Type),
	}
	if iv.Location != "" {
		params["location"] = iv.Location
	}
	if iv.MeetingLink != "" {
		params["meeting_link"] = iv.MeetingLink
	}
	return params
}
