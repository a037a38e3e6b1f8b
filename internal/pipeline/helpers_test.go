package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/pipeline/pipelinetest"
	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store     *pipelinetest.MemStore
	inferer   *pipelinetest.Inferer
	notifier  *pipelinetest.Notifier
	publisher *pipelinetest.Publisher
	engine    *pipeline.Engine
	orch      *pipeline.Orchestrator
	recruiter uuid.UUID
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithTimeout(t, 0)
}

func newHarnessWithTimeout(t *testing.T, timeout time.Duration) *harness {
	t.Helper()
	h := &harness{
		store:     pipelinetest.NewMemStore(),
		inferer:   pipelinetest.NewInferer(),
		notifier:  &pipelinetest.Notifier{},
		publisher: &pipelinetest.Publisher{},
		recruiter: uuid.New(),
	}
	opts := pipeline.Options{Store: h.store, Notifier: h.notifier, Publisher: h.publisher}
	h.engine = pipeline.NewEngine(opts)
	h.orch = pipeline.NewOrchestrator(opts, h.inferer, pipeline.OrchestratorConfig{InferenceTimeout: timeout})
	t.Cleanup(h.orch.Wait)
	return h
}

func (h *harness) submit(t *testing.T) *types.Application {
	t.Helper()
	app, err := h.engine.SubmitApplication(context.Background(), &types.NewApplication{
		CandidateID:     uuid.New(),
		CandidateName:   "Ada Lovelace",
		CandidateEmail:  "ada@example.com",
		JobID:           uuid.New(),
		CVDocumentRef:   "cv/ada.pdf",
		DISCDocumentRef: "disc/ada.pdf",
	})
	require.NoError(t, err)
	return app
}

// submitAt creates an application and forces it into status.
func (h *harness) submitAt(t *testing.T, status types.Status) *types.Application {
	t.Helper()
	app := h.submit(t)
	h.store.SetStatus(app.ID, status)
	app.Status = status
	return app
}

func candidateEvaluation(overall int) types.CandidateEvaluation {
	return types.CandidateEvaluation{
		Scores:         types.Scores{Overall: overall, CulturalFit: 66, SkillsMatch: 72, Communication: 70},
		Recommendation: types.RecommendationReview,
		Summary:        "promising",
		Strengths:      []string{"distributed systems"},
		Concerns:       []string{"limited leadership"},
	}
}

func interviewAnalysis(overall int) types.InterviewAnalysis {
	return types.InterviewAnalysis{
		Scores:         types.Scores{Overall: overall, CulturalFit: 80, SkillsMatch: 84, Communication: 88},
		Recommendation: types.RecommendationProceed,
		Strengths:      []string{"clear reasoning"},
		KeyMoments:     []string{"whiteboard design"},
		Summary:        "strong interview",
		ScoreChangeExplanation: types.ScoreChangeExplanation{
			ReasonsForChange: []string{"communication exceeded expectations"},
		},
	}
}

func cvAnalysis() types.CVAnalysis {
	return types.CVAnalysis{
		YearsOfExperience: 8,
		Skills:            []string{"go", "postgres"},
		Summary:           "senior backend engineer",
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}
