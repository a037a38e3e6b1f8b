package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// InterviewStateError indicates an interview change that its current status does not allow.
type InterviewStateError struct {
	Status types.InterviewStatus
	Change types.InterviewStatus
}

func (e *InterviewStateError) Error() string {
	return fmt.Sprintf("interview is %s and cannot be %s", e.Status, e.Change)
}

// ScheduleInterview creates an interview and, from under_review or reviewed,
// moves the application to interview in the same write. Further rounds may be
// scheduled while the application is in interview or interviewed without a
// status change.
func (e *Engine) ScheduleInterview(ctx context.Context, actor, applicationID uuid.UUID, in *types.InterviewInput) (*InterviewResult, error) {
	if err := in.Validate(); err != nil {
		return nil, &ValidationError{Field: "interview", Message: err.Error()}
	}

	for attempt := 0; attempt < statusWriteAttempts; attempt++ {
		app, err := e.GetApplication(ctx, applicationID)
		if err != nil {
			return nil, err
		}

		var advance *types.StatusUpdate
		if app.Status != types.StatusInterview && app.Status != types.StatusInterviewed {
			next, err := Transition(app.Status, EventScheduleInterview, GateFacts{})
			if err != nil {
				return nil, err
			}
			advance = &types.StatusUpdate{ApplicationID: applicationID, From: app.Status, To: next}
		}

		now := e.now()
		iv := &types.Interview{
			ID:            uuid.New(),
			ApplicationID: applicationID,
			Status:        types.InterviewScheduled,
			ScheduledAt:   in.ScheduledAt,
			Type:          in.Type,
			Location:      in.Location,
			MeetingLink:   in.MeetingLink,
			CreatedBy:     actor,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		scheduledAt, ivType := in.ScheduledAt, in.Type
		entry := &types.InterviewHistoryEntry{
			ID:          uuid.New(),
			InterviewID: iv.ID,
			ChangeType:  types.InterviewScheduled,
			NewDate:     &scheduledAt,
			NewType:     &ivType,
			ChangedBy:   actor,
			Notes:       in.Notes,
			CreatedAt:   now,
		}

		created, err := e.store.CreateInterview(ctx, iv, entry, advance)
		if errors.Is(err, ErrConcurrencyConflict) {
			e.log.Warn("interview scheduling lost status race, retrying", "application_id", applicationID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}

		e.log.Info("interview scheduled", "application_id", applicationID, "interview_id", created.ID, "actor", actor)
		e.publish(ctx, types.EntityInterview, created.ID.String(), applicationID)
		if advance != nil {
			app.Status = advance.To
			e.publish(ctx, types.EntityApplication, applicationID.String(), applicationID)
		}

		entryLog, err := e.dispatch(ctx, actor, app, types.NotificationInterviewScheduled, interviewParams(created))
		if err != nil {
			return nil, err
		}
		return &InterviewResult{Interview: created, Application: app, Notification: entryLog}, nil
	}
	return nil, ErrConcurrencyConflict
}

// RescheduleInterview moves a scheduled interview to a new date or modality.
func (e *Engine) RescheduleInterview(ctx context.Context, actor, interviewID uuid.UUID, in *types.InterviewInput) (*InterviewResult, error) {
	if err := in.Validate(); err != nil {
		return nil, &ValidationError{Field: "interview", Message: err.Error()}
	}
	return e.changeInterview(ctx, actor, interviewID, types.InterviewRescheduled, in.Notes, func(iv *types.Interview) {
		iv.ScheduledAt = in.ScheduledAt
		iv.Type = in.Type
		iv.Location = in.Location
		iv.MeetingLink = in.MeetingLink
	})
}

// CancelInterview cancels a scheduled interview.
func (e *Engine) CancelInterview(ctx context.Context, actor, interviewID uuid.UUID, notes string) (*InterviewResult, error) {
	return e.changeInterview(ctx, actor, interviewID, types.InterviewCancelled, notes, nil)
}

// MarkInterviewCompleted records that a scheduled interview took place.
func (e *Engine) MarkInterviewCompleted(ctx context.Context, actor, interviewID uuid.UUID, notes string) (*InterviewResult, error) {
	return e.changeInterview(ctx, actor, interviewID, types.InterviewCompleted, notes, nil)
}

// ListInterviews returns the interviews of an application.
func (e *Engine) ListInterviews(ctx context.Context, applicationID uuid.UUID) ([]types.Interview, error) {
	if _, err := e.GetApplication(ctx, applicationID); err != nil {
		return nil, err
	}
	return e.store.ListInterviews(ctx, applicationID)
}

// InterviewHistory returns the change log of an interview, oldest first.
func (e *Engine) InterviewHistory(ctx context.Context, interviewID uuid.UUID) ([]types.InterviewHistoryEntry, error) {
	iv, err := e.store.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, ErrNotFound
	}
	return e.store.ListInterviewHistory(ctx, interviewID)
}

func (e *Engine) changeInterview(ctx context.Context, actor, interviewID uuid.UUID, change types.InterviewStatus, notes string, apply func(*types.Interview)) (*InterviewResult, error) {
	iv, err := e.store.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, ErrNotFound
	}
	if iv.Status != types.InterviewScheduled && iv.Status != types.InterviewRescheduled {
		return nil, &InterviewStateError{Status: iv.Status, Change: change}
	}

	app, err := e.GetApplication(ctx, iv.ApplicationID)
	if err != nil {
		return nil, err
	}

	expected := iv.Status
	prevDate, prevType := iv.ScheduledAt, iv.Type
	next := *iv
	if apply != nil {
		apply(&next)
	}
	next.Status = change
	next.UpdatedAt = e.now()

	entry := &types.InterviewHistoryEntry{
		ID:           uuid.New(),
		InterviewID:  iv.ID,
		ChangeType:   change,
		PreviousDate: &prevDate,
		PreviousType: &prevType,
		ChangedBy:    actor,
		Notes:        notes,
		CreatedAt:    next.UpdatedAt,
	}
	if change == types.InterviewRescheduled {
		newDate, newType := next.ScheduledAt, next.Type
		entry.NewDate = &newDate
		entry.NewType = &newType
	}

	updated, err := e.store.UpdateInterview(ctx, &next, expected, entry)
	if err != nil {
		return nil, err
	}
	e.log.Info("interview changed", "interview_id", iv.ID, "application_id", iv.ApplicationID, "change", change, "actor", actor)
	e.publish(ctx, types.EntityInterview, iv.ID.String(), iv.ApplicationID)

	result := &InterviewResult{Interview: updated, Application: app}
	var ntype types.NotificationType
	switch change {
	case types.InterviewRescheduled:
		ntype = types.NotificationInterviewRescheduled
	case types.InterviewCancelled:
		ntype = types.NotificationInterviewCancelled
	}
	if ntype != "" {
		if result.Notification, err = e.dispatch(ctx, actor, app, ntype, interviewParams(updated)); err != nil {
			return nil, err
		}
	}
	return result, nil
}
