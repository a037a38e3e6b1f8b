package types

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Recommendation is the hiring recommendation attached to an evaluation.
type Recommendation string

// Recommendations
const (
	RecommendationProceed Recommendation = "proceed"
	RecommendationReview  Recommendation = "review"
	RecommendationReject  Recommendation = "reject"
)

// Valid reports whether r is a known recommendation.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationProceed, RecommendationReview, RecommendationReject:
		return true
	}
	return false
}

// EvaluationStage marks whether the lineage still holds the pre-interview evaluation.
type EvaluationStage string

// Evaluation stages
const (
	StageInitial       EvaluationStage = "initial"
	StagePostInterview EvaluationStage = "post_interview"
)

// Scores are integer percentage points in [0, 100].
type Scores struct {
	Overall       int `json:"overall_score" validate:"min=0,max=100"`
	CulturalFit   int `json:"cultural_fit_score" validate:"min=0,max=100"`
	SkillsMatch   int `json:"skills_match_score" validate:"min=0,max=100"`
	Communication int `json:"communication_score" validate:"min=0,max=100"`
}

// EvaluationLineage is the evolving AI assessment of one application. The
// Initial* fields are written once, when the stage flips to post_interview,
// and never change afterwards.
type EvaluationLineage struct {
	ApplicationID  uuid.UUID       `json:"application_id"`
	Scores                         // current
	Recommendation Recommendation  `json:"recommendation"`
	Summary        string          `json:"summary"`
	Strengths      []string        `json:"strengths"`
	Concerns       []string        `json:"concerns"`
	RawPayload     json.RawMessage `json:"raw_payload,omitempty"`
	Stage          EvaluationStage `json:"evaluation_stage"`

	InitialOverallScore       *int            `json:"initial_overall_score,omitempty"`
	InitialSkillsMatchScore   *int            `json:"initial_skills_match_score,omitempty"`
	InitialCommunicationScore *int            `json:"initial_communication_score,omitempty"`
	InitialCulturalFitScore   *int            `json:"initial_cultural_fit_score,omitempty"`
	InitialRecommendation     *Recommendation `json:"initial_recommendation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the lineage.
func (l *EvaluationLineage) Clone() *EvaluationLineage {
	if l == nil {
		return nil
	}
	c := *l
	c.Strengths = append([]string(nil), l.Strengths...)
	c.Concerns = append([]string(nil), l.Concerns...)
	c.RawPayload = append(json.RawMessage(nil), l.RawPayload...)
	c.InitialOverallScore = clonePtr(l.InitialOverallScore)
	c.InitialSkillsMatchScore = clonePtr(l.InitialSkillsMatchScore)
	c.InitialCommunicationScore = clonePtr(l.InitialCommunicationScore)
	c.InitialCulturalFitScore = clonePtr(l.InitialCulturalFitScore)
	c.InitialRecommendation = clonePtr(l.InitialRecommendation)
	return &c
}

// CandidateEvaluation is the payload returned by the candidate-evaluation inference call.
type CandidateEvaluation struct {
	Scores
	Recommendation Recommendation `json:"recommendation" validate:"oneof=proceed review reject"`
	Summary        string         `json:"summary"`
	Strengths      []string       `json:"strengths"`
	Concerns       []string       `json:"concerns"`
}

// Validate checks the score bounds and the recommendation.
func (e *CandidateEvaluation) Validate() error {
	validate := validator.New()
	return validate.Struct(e)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
