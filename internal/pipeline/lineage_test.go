package pipeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonathan/hiring-pipeline/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lineageNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func baselineEvaluation(overall int) *types.CandidateEvaluation {
	return &types.CandidateEvaluation{
		Scores:         types.Scores{Overall: overall, CulturalFit: 65, SkillsMatch: 75, Communication: 68},
		Recommendation: types.RecommendationReview,
		Summary:        "solid background",
		Strengths:      []string{"go"},
		Concerns:       []string{"no people management"},
	}
}

func interviewAnalysis(overall int, rec types.Recommendation) *types.InterviewAnalysis {
	return &types.InterviewAnalysis{
		Scores:         types.Scores{Overall: overall, CulturalFit: 80, SkillsMatch: 85, Communication: 90},
		Recommendation: rec,
		Strengths:      []string{"clear communicator"},
		Summary:        "strong interview",
		ScoreChangeExplanation: types.ScoreChangeExplanation{
			PreviousScore:    1,
			NewScore:         2,
			Change:           99,
			ReasonsForChange: []string{"system design answer"},
		},
	}
}

func TestApplyCandidateEvaluation_CreatesInitialLineage(t *testing.T) {
	raw := json.RawMessage(`{"overall_score":70}`)
	got, err := ApplyCandidateEvaluation(nil, baselineEvaluation(70), raw, lineageNow)
	require.NoError(t, err)

	assert.Equal(t, types.StageInitial, got.Stage)
	assert.Equal(t, 70, got.Overall)
	assert.Equal(t, types.RecommendationReview, got.Recommendation)
	assert.Equal(t, lineageNow, got.CreatedAt)
	assert.JSONEq(t, string(raw), string(got.RawPayload))
	assert.Nil(t, got.InitialOverallScore)
	assert.Nil(t, got.InitialRecommendation)
}

func TestApplyCandidateEvaluation_OverwritesInitial(t *testing.T) {
	first, err := ApplyCandidateEvaluation(nil, baselineEvaluation(70), nil, lineageNow)
	require.NoError(t, err)

	later := lineageNow.Add(time.Hour)
	second, err := ApplyCandidateEvaluation(first, baselineEvaluation(74), nil, later)
	require.NoError(t, err)

	assert.Equal(t, 74, second.Overall)
	assert.Equal(t, types.StageInitial, second.Stage)
	assert.Equal(t, lineageNow, second.CreatedAt)
	assert.Equal(t, later, second.UpdatedAt)
	assert.Equal(t, 70, first.Overall, "input lineage must not be mutated")
}

func TestApplyCandidateEvaluation_RefusesPostInterview(t *testing.T) {
	base, err := ApplyCandidateEvaluation(nil, baselineEvaluation(70), nil, lineageNow)
	require.NoError(t, err)
	rolled, _, err := RollForward(base, interviewAnalysis(82, types.RecommendationProceed), nil, lineageNow)
	require.NoError(t, err)

	_, err = ApplyCandidateEvaluation(rolled, baselineEvaluation(60), nil, lineageNow)
	assert.ErrorIs(t, err, ErrLineageFinalized)
}

func TestRollForward_RequiresBaseline(t *testing.T) {
	_, _, err := RollForward(nil, interviewAnalysis(82, types.RecommendationProceed), nil, lineageNow)
	assert.ErrorIs(t, err, ErrMissingBaselineEvaluation)
}

func TestRollForward_FreezesSnapshotOnce(t *testing.T) {
	base, err := ApplyCandidateEvaluation(nil, baselineEvaluation(70), nil, lineageNow)
	require.NoError(t, err)

	first, analysis, err := RollForward(base, interviewAnalysis(82, types.RecommendationProceed), json.RawMessage(`{}`), lineageNow)
	require.NoError(t, err)

	assert.Equal(t, types.StagePostInterview, first.Stage)
	assert.Equal(t, 82, first.Overall)
	assert.Equal(t, types.RecommendationProceed, first.Recommendation)
	require.NotNil(t, first.InitialOverallScore)
	assert.Equal(t, 70, *first.InitialOverallScore)
	assert.Equal(t, 75, *first.InitialSkillsMatchScore)
	assert.Equal(t, 68, *first.InitialCommunicationScore)
	assert.Equal(t, 65, *first.InitialCulturalFitScore)
	assert.Equal(t, types.RecommendationReview, *first.InitialRecommendation)

	assert.Equal(t, types.ScoreChangeExplanation{
		PreviousScore:    70,
		NewScore:         82,
		Change:           12,
		ReasonsForChange: []string{"system design answer"},
	}, analysis.ScoreChangeExplanation)

	// A later analysis overwrites the current fields only.
	second, analysis, err := RollForward(first, interviewAnalysis(60, types.RecommendationReject), nil, lineageNow)
	require.NoError(t, err)
	assert.Equal(t, 60, second.Overall)
	assert.Equal(t, 70, *second.InitialOverallScore)
	assert.Equal(t, types.RecommendationReview, *second.InitialRecommendation)
	assert.Equal(t, 82, analysis.ScoreChangeExplanation.PreviousScore)
	assert.Equal(t, -22, analysis.ScoreChangeExplanation.Change)

	assert.Nil(t, base.InitialOverallScore, "input lineage must not be mutated")
}

func TestExplainScoreChange(t *testing.T) {
	tests := []struct {
		prev, next, want int
	}{
		{70, 82, 12},
		{82, 70, -12},
		{50, 50, 0},
		{0, 100, 100},
	}
	for _, tt := range tests {
		got := ExplainScoreChange(tt.prev, tt.next, nil)
		assert.Equal(t, tt.want, got.Change)
		assert.Equal(t, got.NewScore-got.PreviousScore, got.Change)
	}
}
