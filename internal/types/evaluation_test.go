package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluationLineage_CloneIsDeep(t *testing.T) {
	score := 70
	rec := RecommendationReview
	orig := &EvaluationLineage{
		Scores:                Scores{Overall: 70},
		Strengths:             []string{"a"},
		InitialOverallScore:   &score,
		InitialRecommendation: &rec,
	}

	c := orig.Clone()
	require.NotNil(t, c)
	c.Strengths[0] = "changed"
	*c.InitialOverallScore = 1
	*c.InitialRecommendation = RecommendationReject

	assert.Equal(t, "a", orig.Strengths[0])
	assert.Equal(t, 70, *orig.InitialOverallScore)
	assert.Equal(t, RecommendationReview, *orig.InitialRecommendation)
	assert.Nil(t, (*EvaluationLineage)(nil).Clone())
}

func TestRecommendation_Valid(t *testing.T) {
	assert.True(t, RecommendationProceed.Valid())
	assert.True(t, RecommendationReject.Valid())
	assert.False(t, Recommendation("maybe").Valid())
}
