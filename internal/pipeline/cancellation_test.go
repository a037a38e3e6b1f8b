package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/pipeline/pipelinetest"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contextBoundStore refuses writes on a finished context, as pgx does.
type contextBoundStore struct {
	*pipelinetest.MemStore

	// afterDecision runs once a decision has been stored.
	afterDecision func()
}

func (s *contextBoundStore) CompleteAnalysis(ctx context.Context, applicationID uuid.UUID, kind types.AnalysisKind, token uuid.UUID, result pipeline.AnalysisResult) (*types.AnalysisRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemStore.CompleteAnalysis(ctx, applicationID, kind, token, result)
}

func (s *contextBoundStore) FailAnalysis(ctx context.Context, applicationID uuid.UUID, kind types.AnalysisKind, token uuid.UUID, message string) (*types.AnalysisRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemStore.FailAnalysis(ctx, applicationID, kind, token, message)
}

func (s *contextBoundStore) CompleteInterviewAnalysis(ctx context.Context, applicationID, token uuid.UUID, fold pipeline.InterviewFold, advance types.StatusUpdate) (*pipeline.InterviewCompletion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemStore.CompleteInterviewAnalysis(ctx, applicationID, token, fold, advance)
}

func (s *contextBoundStore) CompleteEvaluation(ctx context.Context, applicationID, token uuid.UUID, fold pipeline.LineageFold) (*types.EvaluationLineage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemStore.CompleteEvaluation(ctx, applicationID, token, fold)
}

func (s *contextBoundStore) ReleaseEvaluation(ctx context.Context, applicationID, token uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.MemStore.ReleaseEvaluation(ctx, applicationID, token)
}

func (s *contextBoundStore) RecordDecision(ctx context.Context, d *types.HiringDecision, advance *types.StatusUpdate) (*types.HiringDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	saved, err := s.MemStore.RecordDecision(ctx, d, advance)
	if err == nil && s.afterDecision != nil {
		s.afterDecision()
	}
	return saved, err
}

func (s *contextBoundStore) AppendNotification(ctx context.Context, entry *types.NotificationLogEntry) (*types.NotificationLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemStore.AppendNotification(ctx, entry)
}

func newContextBoundHarness(t *testing.T) (*harness, *contextBoundStore) {
	t.Helper()
	h := newHarness(t)
	store := &contextBoundStore{MemStore: h.store}
	opts := pipeline.Options{Store: store, Notifier: h.notifier, Publisher: h.publisher}
	h.engine = pipeline.NewEngine(opts)
	h.orch = pipeline.NewOrchestrator(opts, h.inferer, pipeline.OrchestratorConfig{})
	t.Cleanup(h.orch.Wait)
	return h, store
}

func TestExecuteAnalysis_CallerDeadlineStillFailsRecord(t *testing.T) {
	h, _ := newContextBoundHarness(t)
	h.inferer.Succeed(pipeline.InferDISC, types.DISCAnalysis{Dominance: 70, PrimaryStyle: "D", Summary: "driver"})
	h.inferer.Gate = make(chan struct{})
	app := h.submit(t)
	req := pipeline.AnalysisRequest{Actor: h.recruiter, ApplicationID: app.ID, Kind: types.AnalysisDISC}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	rec, err := h.orch.ExecuteAnalysis(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisFailed, rec.Status)
	assert.Nil(t, rec.ClaimToken)

	h.inferer.Gate = nil
	rec, err = h.orch.ExecuteAnalysis(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisCompleted, rec.Status)
}

func TestExecuteCandidateEvaluation_CallerDeadlineReleasesClaim(t *testing.T) {
	h, _ := newContextBoundHarness(t)
	h.inferer.Succeed(pipeline.InferCandidateEvaluation, candidateEvaluation(70))
	h.inferer.Gate = make(chan struct{})
	app := h.submit(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.orch.ExecuteCandidateEvaluation(ctx, h.recruiter, app.ID)
	var ierr *pipeline.InferenceError
	require.ErrorAs(t, err, &ierr)
	assert.False(t, h.store.EvaluationClaimed(app.ID))

	h.inferer.Gate = nil
	lineage, err := h.orch.ExecuteCandidateEvaluation(context.Background(), h.recruiter, app.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, lineage.Overall)
}

func TestRecordDecision_CancelledAfterCommitStillLogsNotification(t *testing.T) {
	h, store := newContextBoundHarness(t)
	app := h.submitAt(t, types.StatusInterviewed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.afterDecision = cancel

	res, err := h.engine.RecordDecision(ctx, h.recruiter, app.ID, &types.DecisionInput{Decision: types.DecisionHired, Reasoning: "strong hire"})
	require.NoError(t, err)
	require.NotNil(t, res.Notification)

	log, err := h.engine.ListNotifications(context.Background(), app.ID)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, types.NotificationSent, log[0].Status)
	assert.Equal(t, types.NotificationDecisionHired, log[0].NotificationType)
}
