package pipeline

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// Store is the persistence the pipeline needs. Every method is a single atomic
// unit; methods that take a fold run it inside the same transaction that writes
// its result. Lookups return (nil, nil) when the row does not exist.
type Store interface {
	ApplicationStore
	ReviewStore
	EvaluationStore
	AnalysisStore
	InterviewStore
	DecisionStore
	NotificationStore
}

// ApplicationStore persists applications.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, in *types.NewApplication) (*types.Application, error)
	GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error)
	ListApplications(ctx context.Context, filter types.ApplicationFilter) ([]types.Application, error)
	// UpdateApplicationStatus applies upd only while the stored status equals upd.From.
	// It reports false when the row had moved on.
	UpdateApplicationStatus(ctx context.Context, upd types.StatusUpdate) (*types.Application, bool, error)
	MarkBusinessCaseCompleted(ctx context.Context, id uuid.UUID) (*types.Application, error)
	AssignApplication(ctx context.Context, id uuid.UUID, recruiterID *uuid.UUID) (*types.Application, error)
}

// ReviewStore persists review checklists.
type ReviewStore interface {
	GetReviewProgress(ctx context.Context, applicationID uuid.UUID) (*types.ReviewProgress, error)
	SetReviewFlag(ctx context.Context, applicationID uuid.UUID, flag types.ReviewFlag, value bool, actor uuid.UUID) (*types.ReviewProgress, error)
}

// LineageFold computes the next lineage from the stored one (nil if absent).
type LineageFold func(current *types.EvaluationLineage) (*types.EvaluationLineage, error)

// EvaluationStore persists evaluation lineages and the per-application
// evaluation-in-flight claim.
type EvaluationStore interface {
	GetEvaluationLineage(ctx context.Context, applicationID uuid.UUID) (*types.EvaluationLineage, error)
	// ClaimEvaluation records token as the in-flight evaluation. It returns
	// ErrAlreadyInProgress when another claim is held.
	ClaimEvaluation(ctx context.Context, applicationID, token uuid.UUID) error
	// CompleteEvaluation releases the claim held by token and writes the folded
	// lineage in one transaction. It returns ErrConcurrencyConflict when token no
	// longer holds the claim.
	CompleteEvaluation(ctx context.Context, applicationID, token uuid.UUID, fold LineageFold) (*types.EvaluationLineage, error)
	// ReleaseEvaluation drops the claim held by token without writing a lineage.
	ReleaseEvaluation(ctx context.Context, applicationID, token uuid.UUID) (bool, error)
	// ResetEvaluationClaim drops any claim regardless of token.
	ResetEvaluationClaim(ctx context.Context, applicationID uuid.UUID) (bool, error)
}

// AnalysisResult is what a successful analysis stores.
type AnalysisResult struct {
	Analysis types.AnalysisPayload
	Summary  string
	Raw      json.RawMessage
}

// InterviewFold computes the next lineage and the analysis to store from the
// stored lineage (nil if absent).
type InterviewFold func(current *types.EvaluationLineage) (*types.EvaluationLineage, AnalysisResult, error)

// InterviewCompletion is the outcome of a committed interview analysis.
type InterviewCompletion struct {
	Record  *types.AnalysisRecord
	Lineage *types.EvaluationLineage
	// Application is the application after the write; StatusAdvanced is false when
	// the conditional status update was skipped.
	Application    *types.Application
	StatusAdvanced bool
}

// ClaimRequest describes an analysis claim.
type ClaimRequest struct {
	ApplicationID uuid.UUID
	Kind          types.AnalysisKind
	InputRef      string
	Token         uuid.UUID
	RequestedBy   uuid.UUID
}

// AnalysisStore persists analysis records.
type AnalysisStore interface {
	GetAnalysis(ctx context.Context, applicationID uuid.UUID, kind types.AnalysisKind) (*types.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, applicationID uuid.UUID) ([]types.AnalysisRecord, error)
	// ClaimAnalysis moves an absent, pending or failed record to processing under
	// req.Token. It returns ErrAlreadyInProgress when the record is processing.
	ClaimAnalysis(ctx context.Context, req ClaimRequest) (*types.AnalysisRecord, error)
	// CompleteAnalysis and FailAnalysis apply only while the record is processing
	// under token, else ErrConcurrencyConflict.
	CompleteAnalysis(ctx context.Context, applicationID uuid.UUID, kind types.AnalysisKind, token uuid.UUID, result AnalysisResult) (*types.AnalysisRecord, error)
	FailAnalysis(ctx context.Context, applicationID uuid.UUID, kind types.AnalysisKind, token uuid.UUID, message string) (*types.AnalysisRecord, error)
	// CompleteInterviewAnalysis completes the interview record held by token, writes
	// the folded lineage and applies advance conditionally, all in one transaction.
	CompleteInterviewAnalysis(ctx context.Context, applicationID, token uuid.UUID, fold InterviewFold, advance types.StatusUpdate) (*InterviewCompletion, error)
	// ResetAnalysis force-resets a processing record to pending. It reports false
	// when the record was not processing.
	ResetAnalysis(ctx context.Context, applicationID uuid.UUID, kind types.AnalysisKind) (*types.AnalysisRecord, bool, error)
}

// InterviewStore persists interviews and their append-only history.
type InterviewStore interface {
	// CreateInterview inserts the interview and its history entry and, when
	// advance is non-nil, applies the status update conditionally; if the status
	// update is skipped nothing is written and ErrConcurrencyConflict is returned.
	CreateInterview(ctx context.Context, iv *types.Interview, entry *types.InterviewHistoryEntry, advance *types.StatusUpdate) (*types.Interview, error)
	GetInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error)
	ListInterviews(ctx context.Context, applicationID uuid.UUID) ([]types.Interview, error)
	// UpdateInterview writes iv and appends entry while the stored interview
	// status still equals expected, else ErrConcurrencyConflict.
	UpdateInterview(ctx context.Context, iv *types.Interview, expected types.InterviewStatus, entry *types.InterviewHistoryEntry) (*types.Interview, error)
	ListInterviewHistory(ctx context.Context, interviewID uuid.UUID) ([]types.InterviewHistoryEntry, error)
}

// DecisionStore persists hiring decisions.
type DecisionStore interface {
	// RecordDecision appends d and, when advance is non-nil, applies the status
	// update conditionally in the same transaction. A skipped status update rolls
	// back the insert and returns ErrConcurrencyConflict.
	RecordDecision(ctx context.Context, d *types.HiringDecision, advance *types.StatusUpdate) (*types.HiringDecision, error)
	ListDecisions(ctx context.Context, applicationID uuid.UUID) ([]types.HiringDecision, error)
}

// NotificationStore persists the notification audit log.
type NotificationStore interface {
	AppendNotification(ctx context.Context, entry *types.NotificationLogEntry) (*types.NotificationLogEntry, error)
	// ListNotifications returns entries newest first.
	ListNotifications(ctx context.Context, applicationID uuid.UUID) ([]types.NotificationLogEntry, error)
}
