package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

// ApplyCandidateEvaluation folds a candidate evaluation into the lineage. A
// missing lineage is created at stage initial; an initial lineage has its current
// fields overwritten. The stage is never changed here.
func ApplyCandidateEvaluation(current *types.EvaluationLineage, eval *types.CandidateEvaluation, raw json.RawMessage, now time.Time) (*types.EvaluationLineage, error) {
	if eval == nil {
		return nil, fmt.Errorf("candidate evaluation is nil")
	}
	if current != nil && current.Stage == types.StagePostInterview {
		return nil, ErrLineageFinalized
	}

	var next *types.EvaluationLineage
	if current == nil {
		next = &types.EvaluationLineage{Stage: types.StageInitial, CreatedAt: now}
	} else {
		next = current.Clone()
	}

	next.Scores = eval.Scores
	next.Recommendation = eval.Recommendation
	next.Summary = eval.Summary
	next.Strengths = append([]string(nil), eval.Strengths...)
	next.Concerns = append([]string(nil), eval.Concerns...)
	next.RawPayload = append(json.RawMessage(nil), raw...)
	next.UpdatedAt = now
	return next, nil
}

// RollForward folds a post-interview analysis into the lineage. On the first
// post-interview analysis the current scores and recommendation are frozen into
// the Initial* snapshot before being overwritten; later analyses overwrite the
// current fields only. The returned payload carries a score change explanation
// computed against the lineage's overall score before the overwrite.
func RollForward(current *types.EvaluationLineage, analysis *types.InterviewAnalysis, raw json.RawMessage, now time.Time) (*types.EvaluationLineage, *types.InterviewAnalysis, error) {
	if current == nil {
		return nil, nil, ErrMissingBaselineEvaluation
	}
	if analysis == nil {
		return nil, nil, fmt.Errorf("interview analysis is nil")
	}

	next := current.Clone()
	if current.Stage != types.StagePostInterview {
		snapshot := current.Scores
		rec := current.Recommendation
		next.InitialOverallScore = &snapshot.Overall
		next.InitialSkillsMatchScore = &snapshot.SkillsMatch
		next.InitialCommunicationScore = &snapshot.Communication
		next.InitialCulturalFitScore = &snapshot.CulturalFit
		next.InitialRecommendation = &rec
		next.Stage = types.StagePostInterview
	}

	normalized := *analysis
	normalized.ScoreChangeExplanation = ExplainScoreChange(current.Overall, analysis.Overall, analysis.ScoreChangeExplanation.ReasonsForChange)

	next.Scores = analysis.Scores
	next.Recommendation = analysis.Recommendation
	next.Summary = analysis.Summary
	next.Strengths = append([]string(nil), analysis.Strengths...)
	next.Concerns = append([]string(nil), analysis.Concerns...)
	next.RawPayload = append(json.RawMessage(nil), raw...)
	next.UpdatedAt = now

	return next, &normalized, nil
}

// ExplainScoreChange builds a score change explanation with Change = newScore - previousScore.
func ExplainScoreChange(previousScore, newScore int, reasons []string) types.ScoreChangeExplanation {
	return types.ScoreChangeExplanation{
		PreviousScore:    previousScore,
		NewScore:         newScore,
		Change:           newScore - previousScore,
		ReasonsForChange: append([]string(nil), reasons...),
	}
}
