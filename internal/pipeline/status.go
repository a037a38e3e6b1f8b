package pipeline

import (
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// Event is something that may move an application to a new status.
type Event string

// Events
const (
	EventSendInvitation    Event = "send_invitation"
	EventBeginReview       Event = "begin_review"
	EventCompleteReview    Event = "complete_review"
	EventScheduleInterview Event = "schedule_interview"
	EventInterviewAnalyzed Event = "interview_analyzed"
	EventDecisionHired     Event = "decision_hired"
	EventDecisionRejected  Event = "decision_rejected"
	// EventDecisionOnHold is recorded without a status change and has no table row.
	EventDecisionOnHold Event = "decision_on_hold"
)

// GateFacts are the preconditions the guard consults for gated events.
type GateFacts struct {
	ReviewComplete             bool
	ManualOverride             bool
	InterviewAnalysisCompleted bool
	Decision                   types.Decision
}

type transitionRule struct {
	from  []types.Status
	to    types.Status
	check func(GateFacts) string
}

var transitionTable = map[Event]transitionRule{
	EventSendInvitation: {
		from: []types.Status{types.StatusPending},
		to:   types.StatusBCQSent,
	},
	EventBeginReview: {
		from: []types.Status{types.StatusBCQSent, types.StatusPending},
		to:   types.StatusUnderReview,
	},
	EventCompleteReview: {
		from: []types.Status{types.StatusUnderReview},
		to:   types.StatusReviewed,
		check: func(f GateFacts) string {
			if f.ReviewComplete || f.ManualOverride {
				return ""
			}
			return "review checklist is incomplete"
		},
	},
	EventScheduleInterview: {
		from: []types.Status{types.StatusUnderReview, types.StatusReviewed},
		to:   types.StatusInterview,
	},
	EventInterviewAnalyzed: {
		from: []types.Status{types.StatusInterview},
		to:   types.StatusInterviewed,
		check: func(f GateFacts) string {
			if f.InterviewAnalysisCompleted {
				return ""
			}
			return "interview analysis has not completed"
		},
	},
	EventDecisionHired: {
		to: types.StatusHired,
		check: func(f GateFacts) string {
			if f.Decision == types.DecisionHired {
				return ""
			}
			return "decision is not hired"
		},
	},
	EventDecisionRejected: {
		to: types.StatusRejected,
		check: func(f GateFacts) string {
			if f.Decision == types.DecisionRejected {
				return ""
			}
			return "decision is not rejected"
		},
	},
}

// Transition returns the status an application moves to when event occurs in
// status current. It fails with *InvalidTransitionError and no next status when
// the event is not legal from current or its precondition does not hold.
// Decision events apply from every non-terminal status.
func Transition(current types.Status, event Event, facts GateFacts) (types.Status, error) {
	rule, ok := transitionTable[event]
	if !ok || current.IsTerminal() || !current.Valid() {
		return current, &InvalidTransitionError{From: current, Event: event}
	}

	if rule.from != nil && !containsStatus(rule.from, current) {
		return current, &InvalidTransitionError{From: current, Event: event}
	}

	if rule.check != nil {
		if reason := rule.check(facts); reason != "" {
			return current, &InvalidTransitionError{From: current, Event: event, Reason: reason}
		}
	}

	return rule.to, nil
}

// CanTransition reports whether event is legal from current given facts.
func CanTransition(current types.Status, event Event, facts GateFacts) bool {
	_, err := Transition(current, event, facts)
	return err == nil
}

// AllowedEvents lists the events that are structurally legal from current,
// ignoring preconditions. Used to render available actions.
func AllowedEvents(current types.Status) []Event {
	if current.IsTerminal() {
		return nil
	}
	var events []Event
	for _, e := range eventOrder {
		rule := transitionTable[e]
		if rule.from == nil || containsStatus(rule.from, current) {
			events = append(events, e)
		}
	}
	return events
}

// DecisionEvent maps a decision to its status event. on_hold has none.
func DecisionEvent(d types.Decision) (Event, bool) {
	switch d {
	case types.DecisionHired:
		return EventDecisionHired, true
	case types.DecisionRejected:
		return EventDecisionRejected, true
	}
	return EventDecisionOnHold, false
}

var eventOrder = []Event{
	EventSendInvitation,
	EventBeginReview,
	EventCompleteReview,
	EventScheduleInterview,
	EventInterviewAnalyzed,
	EventDecisionHired,
	EventDecisionRejected,
}

func containsStatus(list []types.Status, s types.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
