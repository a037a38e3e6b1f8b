package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/logging"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// statusWriteAttempts bounds how often a recruiter action re-reads and re-checks
// the guard after losing a conditional status write.
const statusWriteAttempts = 2

// Options holds the collaborators shared by Engine and Orchestrator.
type Options struct {
	Store     Store
	Notifier  Notifier
	Publisher Publisher
	Logger    *logging.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Publisher == nil {
		o.Publisher = nopPublisher{}
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Engine runs recruiter and candidate actions against applications. Every status
// change goes through Transition and a conditional store write.
type Engine struct {
	store     Store
	notifier  Notifier
	publisher Publisher
	log       *logging.Logger
	now       func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		store:     opts.Store,
		notifier:  opts.Notifier,
		publisher: opts.Publisher,
		log:       opts.Logger.With("component", "engine"),
		now:       opts.Now,
	}
}

// InvitationResult is returned by invitation actions.
type InvitationResult struct {
	Application  *types.Application          `json:"application"`
	Notification *types.NotificationLogEntry `json:"notification,omitempty"`
}

// InterviewResult is returned by interview actions.
type InterviewResult struct {
	Interview    *types.Interview            `json:"interview"`
	Application  *types.Application          `json:"application"`
	Notification *types.NotificationLogEntry `json:"notification,omitempty"`
}

// DecisionResult is returned by RecordDecision.
type DecisionResult struct {
	Decision     *types.HiringDecision       `json:"decision"`
	Application  *types.Application          `json:"application"`
	Notification *types.NotificationLogEntry `json:"notification,omitempty"`
}

// ReviewResult is returned by review actions.
type ReviewResult struct {
	Progress    *types.ReviewProgress `json:"progress"`
	Completed   int                   `json:"completed"`
	Total       int                   `json:"total"`
	Application *types.Application    `json:"application"`
}

// SubmitApplication creates an application in the pending status.
func (e *Engine) SubmitApplication(ctx context.Context, in *types.NewApplication) (*types.Application, error) {
	if err := in.Validate(); err != nil {
		return nil, &ValidationError{Field: "application", Message: err.Error()}
	}
	in.CandidateEmail = strings.TrimSpace(in.CandidateEmail)

	app, err := e.store.CreateApplication(ctx, in)
	if err != nil {
		return nil, err
	}
	e.log.Info("application submitted", "application_id", app.ID, "job_id", app.JobID)
	e.publish(ctx, types.EntityApplication, app.ID.String(), app.ID)
	return app, nil
}

// GetApplication returns an application or ErrNotFound.
func (e *Engine) GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error) {
	app, err := e.store.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNotFound
	}
	return app, nil
}

// ListApplications lists applications matching filter.
func (e *Engine) ListApplications(ctx context.Context, filter types.ApplicationFilter) ([]types.Application, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "unknown status " + string(filter.Status)}
	}
	return e.store.ListApplications(ctx, filter)
}

// SendBusinessCaseInvitation moves a pending application to bcq_sent, stamps the
// invitation time and notifies the candidate.
func (e *Engine) SendBusinessCaseInvitation(ctx context.Context, actor, id uuid.UUID) (*InvitationResult, error) {
	app, err := e.advance(ctx, actor, id, EventSendInvitation, nil, func(upd *types.StatusUpdate) {
		sentAt := e.now()
		upd.BCQInvitationSentAt = &sentAt
	})
	if err != nil {
		return nil, err
	}

	entry, err := e.dispatch(ctx, actor, app, types.NotificationBCQInvitation, nil)
	if err != nil {
		return nil, err
	}
	return &InvitationResult{Application: app, Notification: entry}, nil
}

// ResendNotification re-dispatches a notification for an application without
// touching its status. It is the retry path for failed notifications.
func (e *Engine) ResendNotification(ctx context.Context, actor, id uuid.UUID, ntype types.NotificationType) (*types.NotificationLogEntry, error) {
	app, err := e.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}

	var params map[string]string
	switch ntype {
	case types.NotificationBCQInvitation:
		if app.Status != types.StatusBCQSent {
			return nil, &ValidationError{Field: "notification_type", Message: "invitation can only be resent while status is bcq_sent"}
		}
	case types.NotificationInterviewScheduled, types.NotificationInterviewRescheduled, types.NotificationInterviewCancelled:
		ivs, err := e.store.ListInterviews(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(ivs) == 0 {
			return nil, &ValidationError{Field: "notification_type", Message: "application has no interviews"}
		}
		params = interviewParams(&ivs[len(ivs)-1])
	case types.NotificationDecisionHired, types.NotificationDecisionRejected:
		want := types.StatusHired
		if ntype == types.NotificationDecisionRejected {
			want = types.StatusRejected
		}
		if app.Status != want {
			return nil, &ValidationError{Field: "notification_type", Message: "decision notification does not match application status"}
		}
	default:
		return nil, &ValidationError{Field: "notification_type", Message: "unknown notification type " + string(ntype)}
	}

	return e.dispatch(ctx, actor, app, ntype, params)
}

// SubmitBusinessCase records the candidate's business-case response and begins
// review when the application is still waiting on it.
func (e *Engine) SubmitBusinessCase(ctx context.Context, candidate, id uuid.UUID) (*types.Application, error) {
	app, err := e.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.CandidateID != candidate {
		return nil, &ValidationError{Field: "candidate_id", Message: "only the applying candidate can submit the business case"}
	}
	if app.Status.IsTerminal() {
		return nil, &InvalidTransitionError{From: app.Status, Event: EventBeginReview}
	}

	app, err = e.store.MarkBusinessCaseCompleted(ctx, id)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, types.EntityApplication, id.String(), id)

	if !CanTransition(app.Status, EventBeginReview, GateFacts{}) {
		return app, nil
	}
	return e.advance(ctx, candidate, id, EventBeginReview, nil, nil)
}

// BeginReview moves an application to under_review.
func (e *Engine) BeginReview(ctx context.Context, actor, id uuid.UUID) (*types.Application, error) {
	return e.advance(ctx, actor, id, EventBeginReview, nil, nil)
}

// GetReview returns the checklist for an application with its completion count.
func (e *Engine) GetReview(ctx context.Context, id uuid.UUID) (*ReviewResult, error) {
	app, err := e.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	progress, err := e.store.GetReviewProgress(ctx, id)
	if err != nil {
		return nil, err
	}
	return reviewResult(progress, app), nil
}

// SetReviewFlag sets one checklist item. When the checklist becomes complete
// while the application is under review, it moves to reviewed.
func (e *Engine) SetReviewFlag(ctx context.Context, actor, id uuid.UUID, flag types.ReviewFlag, value bool) (*ReviewResult, error) {
	if !flag.Valid() {
		return nil, &ValidationError{Field: "flag", Message: "unknown review flag " + string(flag)}
	}
	app, err := e.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}

	progress, err := e.store.SetReviewFlag(ctx, id, flag, value, actor)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, types.EntityReviewProgress, id.String(), id)

	if IsComplete(progress) && app.Status == types.StatusUnderReview {
		advanced, err := e.advance(ctx, actor, id, EventCompleteReview, func(*types.Application) (GateFacts, error) {
			return GateFacts{ReviewComplete: true}, nil
		}, nil)
		switch {
		case err == nil:
			app = advanced
		case IsInvalidTransition(err), errors.Is(err, ErrConcurrencyConflict):
			e.log.Info("automatic review completion skipped", "application_id", id, "reason", err.Error())
		default:
			return nil, err
		}
	}
	return reviewResult(progress, app), nil
}

// CompleteReview moves an application from under_review to reviewed. Without
// override the checklist must be complete.
func (e *Engine) CompleteReview(ctx context.Context, actor, id uuid.UUID, override bool) (*ReviewResult, error) {
	var progress *types.ReviewProgress
	app, err := e.advance(ctx, actor, id, EventCompleteReview, func(*types.Application) (GateFacts, error) {
		p, err := e.store.GetReviewProgress(ctx, id)
		if err != nil {
			return GateFacts{}, err
		}
		progress = p
		return GateFacts{ReviewComplete: IsComplete(p), ManualOverride: override}, nil
	}, nil)
	if err != nil {
		return nil, err
	}
	if override {
		e.log.Info("review completed by manual override", "application_id", id, "actor", actor)
	}
	return reviewResult(progress, app), nil
}

// AssignRecruiter sets or clears the recruiter responsible for an application.
func (e *Engine) AssignRecruiter(ctx context.Context, actor, id uuid.UUID, recruiterID *uuid.UUID) (*types.Application, error) {
	if _, err := e.GetApplication(ctx, id); err != nil {
		return nil, err
	}
	app, err := e.store.AssignApplication(ctx, id, recruiterID)
	if err != nil {
		return nil, err
	}
	e.log.Info("application assigned", "application_id", id, "actor", actor, "assigned_to", recruiterID)
	e.publish(ctx, types.EntityApplication, id.String(), id)
	return app, nil
}

// GetEvaluation returns the evaluation lineage or ErrNotFound.
func (e *Engine) GetEvaluation(ctx context.Context, id uuid.UUID) (*types.EvaluationLineage, error) {
	lineage, err := e.store.GetEvaluationLineage(ctx, id)
	if err != nil {
		return nil, err
	}
	if lineage == nil {
		return nil, ErrNotFound
	}
	return lineage, nil
}

// ListDecisions returns the decision history of an application.
func (e *Engine) ListDecisions(ctx context.Context, id uuid.UUID) ([]types.HiringDecision, error) {
	if _, err := e.GetApplication(ctx, id); err != nil {
		return nil, err
	}
	return e.store.ListDecisions(ctx, id)
}

// ListNotifications returns the notification log of an application, newest first.
func (e *Engine) ListNotifications(ctx context.Context, id uuid.UUID) ([]types.NotificationLogEntry, error) {
	if _, err := e.GetApplication(ctx, id); err != nil {
		return nil, err
	}
	return e.store.ListNotifications(ctx, id)
}

// RecordDecision appends a hiring decision and, for hired or rejected, moves the
// application to the matching terminal status in the same write. on_hold is
// recorded without a status change. Terminal applications accept no decisions.
func (e *Engine) RecordDecision(ctx context.Context, actor, id uuid.UUID, in *types.DecisionInput) (*DecisionResult, error) {
	if err := in.Validate(); err != nil {
		return nil, &ValidationError{Field: "decision", Message: err.Error()}
	}
	event, changesStatus := DecisionEvent(in.Decision)

	for attempt := 0; attempt < statusWriteAttempts; attempt++ {
		app, err := e.GetApplication(ctx, id)
		if err != nil {
			return nil, err
		}
		if app.Status.IsTerminal() {
			return nil, &InvalidTransitionError{From: app.Status, Event: event, Reason: "application already has a final decision"}
		}

		var advance *types.StatusUpdate
		if changesStatus {
			next, err := Transition(app.Status, event, GateFacts{Decision: in.Decision})
			if err != nil {
				return nil, err
			}
			advance = &types.StatusUpdate{ApplicationID: id, From: app.Status, To: next}
		}

		decision := &types.HiringDecision{
			ID:              uuid.New(),
			ApplicationID:   id,
			Decision:        in.Decision,
			DecidedBy:       actor,
			Reasoning:       in.Reasoning,
			SalaryOffered:   in.SalaryOffered,
			StartDate:       in.StartDate,
			RejectionReason: in.RejectionReason,
			CreatedAt:       e.now(),
		}
		saved, err := e.store.RecordDecision(ctx, decision, advance)
		if errors.Is(err, ErrConcurrencyConflict) {
			e.log.Warn("decision lost status race, retrying", "application_id", id, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}

		e.log.Info("hiring decision recorded", "application_id", id, "decision", in.Decision, "actor", actor)
		e.publish(ctx, types.EntityHiringDecision, saved.ID.String(), id)

		result := &DecisionResult{Decision: saved, Application: app}
		if advance != nil {
			app.Status = advance.To
			e.publish(ctx, types.EntityApplication, id.String(), id)

			ntype := types.NotificationDecisionHired
			if in.Decision == types.DecisionRejected {
				ntype = types.NotificationDecisionRejected
			}
			entry, err := e.dispatch(ctx, actor, app, ntype, nil)
			if err != nil {
				return nil, err
			}
			result.Notification = entry
		}
		if refreshed, err := e.store.GetApplication(ctx, id); err == nil && refreshed != nil {
			result.Application = refreshed
		}
		return result, nil
	}
	return nil, ErrConcurrencyConflict
}

// factsFunc supplies gate facts for the application as read.
type factsFunc func(app *types.Application) (GateFacts, error)

// advance applies event to the application through the guard and a conditional
// status write, re-reading once when the write loses a race.
func (e *Engine) advance(ctx context.Context, actor, id uuid.UUID, event Event, facts factsFunc, mutate func(*types.StatusUpdate)) (*types.Application, error) {
	for attempt := 0; attempt < statusWriteAttempts; attempt++ {
		app, err := e.GetApplication(ctx, id)
		if err != nil {
			return nil, err
		}

		var f GateFacts
		if facts != nil {
			if f, err = facts(app); err != nil {
				return nil, err
			}
		}

		next, err := Transition(app.Status, event, f)
		if err != nil {
			return nil, err
		}

		upd := types.StatusUpdate{ApplicationID: id, From: app.Status, To: next}
		if mutate != nil {
			mutate(&upd)
		}
		updated, ok, err := e.store.UpdateApplicationStatus(ctx, upd)
		if err != nil {
			return nil, err
		}
		if !ok {
			e.log.Warn("status write lost race", "application_id", id, "event", event, "from", app.Status, "attempt", attempt+1)
			continue
		}

		e.log.Info("application status changed", "application_id", id, "event", event, "from", app.Status, "to", next, "actor", actor)
		e.publish(ctx, types.EntityApplication, id.String(), id)
		return updated, nil
	}
	return nil, ErrConcurrencyConflict
}

func (e *Engine) publish(ctx context.Context, kind types.EntityKind, entityID string, applicationID uuid.UUID) {
	e.publisher.Publish(ctx, types.ChangeEvent{
		EntityKind:    kind,
		EntityID:      entityID,
		ApplicationID: applicationID,
		OccurredAt:    e.now(),
	})
}

func reviewResult(progress *types.ReviewProgress, app *types.Application) *ReviewResult {
	completed, total := CompletionCount(progress)
	return &ReviewResult{Progress: progress, Completed: completed, Total: total, Application: app}
}
