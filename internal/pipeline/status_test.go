package pipeline

import (
	"math/rand"
	"testing"

	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_LegalMoves(t *testing.T) {
	tests := []struct {
		name    string
		current types.Status
		event   Event
		facts   GateFacts
		want    types.Status
	}{
		{"invite pending", types.StatusPending, EventSendInvitation, GateFacts{}, types.StatusBCQSent},
		{"review from bcq_sent", types.StatusBCQSent, EventBeginReview, GateFacts{}, types.StatusUnderReview},
		{"review skipping invitation", types.StatusPending, EventBeginReview, GateFacts{}, types.StatusUnderReview},
		{"complete review with checklist", types.StatusUnderReview, EventCompleteReview, GateFacts{ReviewComplete: true}, types.StatusReviewed},
		{"complete review with override", types.StatusUnderReview, EventCompleteReview, GateFacts{ManualOverride: true}, types.StatusReviewed},
		{"interview from under_review", types.StatusUnderReview, EventScheduleInterview, GateFacts{}, types.StatusInterview},
		{"interview from reviewed", types.StatusReviewed, EventScheduleInterview, GateFacts{}, types.StatusInterview},
		{"interview analyzed", types.StatusInterview, EventInterviewAnalyzed, GateFacts{InterviewAnalysisCompleted: true}, types.StatusInterviewed},
		{"hire from interviewed", types.StatusInterviewed, EventDecisionHired, GateFacts{Decision: types.DecisionHired}, types.StatusHired},
		{"hire from pending", types.StatusPending, EventDecisionHired, GateFacts{Decision: types.DecisionHired}, types.StatusHired},
		{"reject from under_review", types.StatusUnderReview, EventDecisionRejected, GateFacts{Decision: types.DecisionRejected}, types.StatusRejected},
		{"reject from interview", types.StatusInterview, EventDecisionRejected, GateFacts{Decision: types.DecisionRejected}, types.StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.current, tt.event, tt.facts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransition_IllegalMoves(t *testing.T) {
	tests := []struct {
		name       string
		current    types.Status
		event      Event
		facts      GateFacts
		wantReason bool
	}{
		{"invite twice", types.StatusBCQSent, EventSendInvitation, GateFacts{}, false},
		{"interview from pending", types.StatusPending, EventScheduleInterview, GateFacts{}, false},
		{"interview from bcq_sent", types.StatusBCQSent, EventScheduleInterview, GateFacts{}, false},
		{"incomplete review", types.StatusUnderReview, EventCompleteReview, GateFacts{}, true},
		{"analyzed without analysis", types.StatusInterview, EventInterviewAnalyzed, GateFacts{}, true},
		{"analyzed from reviewed", types.StatusReviewed, EventInterviewAnalyzed, GateFacts{InterviewAnalysisCompleted: true}, false},
		{"hired event with rejected decision", types.StatusInterviewed, EventDecisionHired, GateFacts{Decision: types.DecisionRejected}, true},
		{"hired after rejected", types.StatusRejected, EventDecisionHired, GateFacts{Decision: types.DecisionHired}, false},
		{"rejected after hired", types.StatusHired, EventDecisionRejected, GateFacts{Decision: types.DecisionRejected}, false},
		{"unknown status", types.Status("archived"), EventBeginReview, GateFacts{}, false},
		{"unknown event", types.StatusPending, Event("promote"), GateFacts{}, false},
		{"on hold has no row", types.StatusInterviewed, EventDecisionOnHold, GateFacts{Decision: types.DecisionOnHold}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.current, tt.event, tt.facts)
			require.Error(t, err)
			assert.Equal(t, tt.current, got)

			var ite *InvalidTransitionError
			require.ErrorAs(t, err, &ite)
			assert.Equal(t, tt.current, ite.From)
			assert.Equal(t, tt.event, ite.Event)
			assert.Equal(t, tt.wantReason, ite.Reason != "")
			assert.True(t, IsInvalidTransition(err))
		})
	}
}

func TestTransition_TerminalStatusesAcceptNothing(t *testing.T) {
	for _, status := range []types.Status{types.StatusHired, types.StatusRejected} {
		for _, event := range eventOrder {
			facts := GateFacts{ReviewComplete: true, ManualOverride: true, InterviewAnalysisCompleted: true, Decision: types.DecisionHired}
			_, err := Transition(status, event, facts)
			assert.Error(t, err, "%s from %s", event, status)
		}
		assert.Empty(t, AllowedEvents(status))
	}
}

// Random walks through the machine never leave a terminal status and only ever
// produce moves present in the table.
func TestTransition_RandomWalks(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	decisions := []types.Decision{types.DecisionHired, types.DecisionRejected, types.DecisionOnHold}

	for walk := 0; walk < 500; walk++ {
		status := types.StatusPending
		for step := 0; step < 20; step++ {
			event := eventOrder[rng.Intn(len(eventOrder))]
			facts := GateFacts{
				ReviewComplete:             rng.Intn(2) == 0,
				ManualOverride:             rng.Intn(4) == 0,
				InterviewAnalysisCompleted: rng.Intn(2) == 0,
				Decision:                   decisions[rng.Intn(len(decisions))],
			}

			next, err := Transition(status, event, facts)
			if status.IsTerminal() {
				require.Error(t, err)
				continue
			}
			if err != nil {
				assert.Equal(t, status, next)
				continue
			}

			rule := transitionTable[event]
			assert.Equal(t, rule.to, next)
			if rule.from != nil {
				assert.Contains(t, rule.from, status)
			}
			status = next
		}
	}
}

func TestAllowedEvents(t *testing.T) {
	assert.Equal(t,
		[]Event{EventSendInvitation, EventBeginReview, EventDecisionHired, EventDecisionRejected},
		AllowedEvents(types.StatusPending))
	assert.Equal(t,
		[]Event{EventCompleteReview, EventScheduleInterview, EventDecisionHired, EventDecisionRejected},
		AllowedEvents(types.StatusUnderReview))
	assert.Equal(t,
		[]Event{EventInterviewAnalyzed, EventDecisionHired, EventDecisionRejected},
		AllowedEvents(types.StatusInterview))
}

func TestDecisionEvent(t *testing.T) {
	ev, ok := DecisionEvent(types.DecisionHired)
	assert.True(t, ok)
	assert.Equal(t, EventDecisionHired, ev)

	ev, ok = DecisionEvent(types.DecisionRejected)
	assert.True(t, ok)
	assert.Equal(t, EventDecisionRejected, ev)

	ev, ok = DecisionEvent(types.DecisionOnHold)
	assert.False(t, ok)
	assert.Equal(t, EventDecisionOnHold, ev)
}

func TestCompletionCount(t *testing.T) {
	completed, total := CompletionCount(nil)
	assert.Equal(t, 0, completed)
	assert.Equal(t, 4, total)
	assert.False(t, IsComplete(nil))

	p := &types.ReviewProgress{AIAnalysisReviewed: true, DISCAnalysisReviewed: true}
	completed, total = CompletionCount(p)
	assert.Equal(t, 2, completed)
	assert.Equal(t, 4, total)
	assert.False(t, IsComplete(p))

	p.CVAnalysisReviewed = true
	p.BusinessCaseReviewed = true
	assert.True(t, IsComplete(p))
}
