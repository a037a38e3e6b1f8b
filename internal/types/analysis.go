package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// AnalysisKind identifies which document or event an analysis covers.
type AnalysisKind string

// Analysis kinds
const (
	AnalysisCV        AnalysisKind = "cv"
	AnalysisDISC      AnalysisKind = "disc"
	AnalysisInterview AnalysisKind = "interview"
)

// AnalysisKinds lists every analysis kind.
var AnalysisKinds = []AnalysisKind{AnalysisCV, AnalysisDISC, AnalysisInterview}

// Valid reports whether k is a known analysis kind.
func (k AnalysisKind) Valid() bool {
	switch k {
	case AnalysisCV, AnalysisDISC, AnalysisInterview:
		return true
	}
	return false
}

// AnalysisStatus is the lifecycle state of an analysis record.
type AnalysisStatus string

// Analysis statuses
const (
	AnalysisPending    AnalysisStatus = "pending"
	AnalysisProcessing AnalysisStatus = "processing"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisFailed     AnalysisStatus = "failed"
)

// AnalysisRecord tracks one asynchronous analysis run for an (application, kind) pair.
type AnalysisRecord struct {
	ID            uuid.UUID       `json:"id"`
	ApplicationID uuid.UUID       `json:"application_id"`
	Kind          AnalysisKind    `json:"kind"`
	Status        AnalysisStatus  `json:"status"`
	Analysis      AnalysisPayload `json:"analysis,omitempty"`
	Summary       string          `json:"summary,omitempty"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	InputRef      string          `json:"input_ref,omitempty"`
	ClaimToken    *uuid.UUID      `json:"-"`
	RequestedBy   *uuid.UUID      `json:"requested_by,omitempty"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AnalysisPayload is the structured result of an analysis. The concrete type is
// selected by Kind: *CVAnalysis, *DISCAnalysis or *InterviewAnalysis.
type AnalysisPayload interface {
	Kind() AnalysisKind
	Validate() error
	isAnalysisPayload()
}

// CVAnalysis is the structured result of a CV analysis.
type CVAnalysis struct {
	YearsOfExperience int              `json:"years_of_experience" validate:"min=0,max=70"`
	Skills            []string         `json:"skills"`
	Education         []string         `json:"education"`
	WorkHistory       []WorkHistoryRow `json:"work_history" validate:"dive"`
	Strengths         []string         `json:"strengths"`
	Gaps              []string         `json:"gaps"`
	Summary           string           `json:"summary" validate:"required"`
}

// WorkHistoryRow is one position listed on a CV.
type WorkHistoryRow struct {
	Company  string `json:"company" validate:"required"`
	Role     string `json:"role" validate:"required"`
	Duration string `json:"duration,omitempty"`
}

// DISCAnalysis is the structured result of a DISC profile analysis.
type DISCAnalysis struct {
	Dominance                int      `json:"dominance" validate:"min=0,max=100"`
	Influence                int      `json:"influence" validate:"min=0,max=100"`
	Steadiness               int      `json:"steadiness" validate:"min=0,max=100"`
	Conscientiousness        int      `json:"conscientiousness" validate:"min=0,max=100"`
	PrimaryStyle             string   `json:"primary_style"`
	WorkStyle                string   `json:"work_style"`
	CommunicationPreferences []string `json:"communication_preferences"`
	Strengths                []string `json:"strengths"`
	PotentialChallenges      []string `json:"potential_challenges"`
	Summary                  string   `json:"summary" validate:"required"`
}

// InterviewAnalysis is the structured result of an interview analysis.
type InterviewAnalysis struct {
	Scores
	Recommendation         Recommendation         `json:"recommendation" validate:"oneof=proceed review reject"`
	Strengths              []string               `json:"strengths"`
	Concerns               []string               `json:"concerns"`
	KeyMoments             []string               `json:"key_moments,omitempty"`
	ScoreChangeExplanation ScoreChangeExplanation `json:"score_change_explanation"`
	Summary                string                 `json:"summary" validate:"required"`
}

// ScoreChangeExplanation describes how the overall score moved between two
// consecutive evaluations. Change is always NewScore - PreviousScore.
type ScoreChangeExplanation struct {
	PreviousScore    int      `json:"previous_score"`
	NewScore         int      `json:"new_score"`
	Change           int      `json:"change"`
	ReasonsForChange []string `json:"reasons_for_change"`
}

// Kind implements AnalysisPayload.
func (*CVAnalysis) Kind() AnalysisKind { return AnalysisCV }

// Kind implements AnalysisPayload.
func (*DISCAnalysis) Kind() AnalysisKind { return AnalysisDISC }

// Kind implements AnalysisPayload.
func (*InterviewAnalysis) Kind() AnalysisKind { return AnalysisInterview }

// Validate checks the bounds and required fields of a decoded payload.
func (a *CVAnalysis) Validate() error { return validator.New().Struct(a) }

// Validate implements AnalysisPayload.
func (a *DISCAnalysis) Validate() error { return validator.New().Struct(a) }

// Validate implements AnalysisPayload.
func (a *InterviewAnalysis) Validate() error { return validator.New().Struct(a) }

func (*CVAnalysis) isAnalysisPayload()        {}
func (*DISCAnalysis) isAnalysisPayload()      {}
func (*InterviewAnalysis) isAnalysisPayload() {}

// DecodeAnalysis decodes a raw payload into the concrete type for kind.
func DecodeAnalysis(kind AnalysisKind, raw []byte) (AnalysisPayload, error) {
	var payload AnalysisPayload
	switch kind {
	case AnalysisCV:
		payload = &CVAnalysis{}
	case AnalysisDISC:
		payload = &DISCAnalysis{}
	case AnalysisInterview:
		payload = &InterviewAnalysis{}
	default:
		return nil, fmt.Errorf("unknown analysis kind: %q", kind)
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s analysis: %w", kind, err)
	}
	return payload, nil
}

// AnalysisSummary returns the summary text carried by a payload.
func AnalysisSummary(p AnalysisPayload) string {
	switch v := p.(type) {
	case *CVAnalysis:
		return v.Summary
	case *DISCAnalysis:
		return v.Summary
	case *InterviewAnalysis:
		return v.Summary
	}
	return ""
}

// UnmarshalJSON decodes the record and dispatches the analysis payload on Kind.
func (r *AnalysisRecord) UnmarshalJSON(data []byte) error {
	type plain AnalysisRecord
	aux := struct {
		*plain
		Analysis json.RawMessage `json:"analysis,omitempty"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Analysis = nil
	if len(aux.Analysis) > 0 && string(aux.Analysis) != "null" {
		payload, err := DecodeAnalysis(r.Kind, aux.Analysis)
		if err != nil {
			return err
		}
		r.Analysis = payload
	}
	return nil
}
