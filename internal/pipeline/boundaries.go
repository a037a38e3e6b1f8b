package pipeline

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// InferenceKind selects the inference task. The analysis kinds plus candidate evaluation.
type InferenceKind string

// Inference kinds
const (
	InferCV                  InferenceKind = InferenceKind(types.AnalysisCV)
	InferDISC                InferenceKind = InferenceKind(types.AnalysisDISC)
	InferInterview           InferenceKind = InferenceKind(types.AnalysisInterview)
	InferCandidateEvaluation InferenceKind = "candidate_evaluation"
)

// InferenceRequest is sent to the inference boundary.
type InferenceRequest struct {
	ApplicationID uuid.UUID     `json:"application_id"`
	Kind          InferenceKind `json:"kind"`
	InputRef      string        `json:"input_ref"`
}

// InferenceResponse is either a successful payload or an error message.
type InferenceResponse struct {
	Success bool            `json:"success"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Inferer is the external inference boundary. Calls must be safe to retry.
type Inferer interface {
	Infer(ctx context.Context, req InferenceRequest) InferenceResponse
}

// InfererFunc adapts a function to Inferer.
type InfererFunc func(ctx context.Context, req InferenceRequest) InferenceResponse

// Infer calls f.
func (f InfererFunc) Infer(ctx context.Context, req InferenceRequest) InferenceResponse {
	return f(ctx, req)
}

// NotificationRequest is sent to the notification boundary.
type NotificationRequest struct {
	ApplicationID    uuid.UUID              `json:"application_id"`
	NotificationType types.NotificationType `json:"notification_type"`
	TemplateParams   map[string]string      `json:"template_params"`
}

// NotificationResponse reports whether the notification was delivered.
type NotificationResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Notifier is the external notification boundary.
type Notifier interface {
	Notify(ctx context.Context, req NotificationRequest) NotificationResponse
}

// Publisher receives a change event after every committed mutation.
type Publisher interface {
	Publish(ctx context.Context, ev types.ChangeEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, types.ChangeEvent) {}
