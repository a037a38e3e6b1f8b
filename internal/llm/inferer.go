package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/logging"
	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/prompts"
	"github.com/jonathan/hiring-pipeline/internal/schemas"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// defaultMaxAttempts covers one retry after an output that fails schema validation.
const defaultMaxAttempts = 2

// ContextSource supplies the application data that prompts are rendered with.
// pipeline.Store satisfies it.
type ContextSource interface {
	GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error)
	GetEvaluationLineage(ctx context.Context, applicationID uuid.UUID) (*types.EvaluationLineage, error)
	ListAnalyses(ctx context.Context, applicationID uuid.UUID) ([]types.AnalysisRecord, error)
}

// task describes how one inference kind is prompted and validated.
type task struct {
	promptKey string
	schema    string
	tier      ModelTier
	output    func(preamble string) ExtractionSchema
	// needsDocument is false when the prompt can be built from prior analyses alone.
	needsDocument bool
}

var tasks = map[pipeline.InferenceKind]task{
	pipeline.InferCV:                  {"cv_analysis", schemas.CV, TierStandard, CVAnalysisSchema, true},
	pipeline.InferDISC:                {"disc_analysis", schemas.DISC, TierStandard, DISCAnalysisSchema, true},
	pipeline.InferInterview:           {"interview_analysis", schemas.Interview, TierAdvanced, InterviewAnalysisSchema, true},
	pipeline.InferCandidateEvaluation: {"candidate_evaluation", schemas.CandidateEvaluation, TierAdvanced, CandidateEvaluationSchema, false},
}

// InfererOptions configures an Inferer.
type InfererOptions struct {
	Documents DocumentLoader
	Source    ContextSource
	Logger    *logging.Logger
	// MaxAttempts bounds generation attempts per call; zero means the default.
	MaxAttempts int
}

// Inferer implements pipeline.Inferer on top of an LLM Client.
type Inferer struct {
	client      Client
	docs        DocumentLoader
	source      ContextSource
	log         *logging.Logger
	maxAttempts int
}

var _ pipeline.Inferer = (*Inferer)(nil)

// NewInferer creates an Inferer.
func NewInferer(client Client, opts InfererOptions) *Inferer {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	return &Inferer{
		client:      client,
		docs:        opts.Documents,
		source:      opts.Source,
		log:         opts.Logger.With("component", "inferer"),
		maxAttempts: opts.MaxAttempts,
	}
}

// Infer runs one inference call. Failures are reported in the response, never panicked.
func (i *Inferer) Infer(ctx context.Context, req pipeline.InferenceRequest) pipeline.InferenceResponse {
	payload, err := i.infer(ctx, req)
	if err != nil {
		i.log.Warn("inference failed", "application_id", req.ApplicationID, "kind", req.Kind, "error", err)
		return pipeline.InferenceResponse{Success: false, Error: err.Error()}
	}
	return pipeline.InferenceResponse{Success: true, Payload: json.RawMessage(payload)}
}

func (i *Inferer) infer(ctx context.Context, req pipeline.InferenceRequest) (string, error) {
	t, ok := tasks[req.Kind]
	if !ok {
		return "", fmt.Errorf("unsupported inference kind %q", req.Kind)
	}

	data, err := i.promptData(ctx, req)
	if err != nil {
		return "", err
	}
	preamble, err := prompts.Render(prompts.AnalysisFile, t.promptKey, data)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}

	var inputText string
	var attachments []Attachment
	if req.InputRef != "" {
		doc, err := i.load(ctx, req.InputRef)
		if err != nil {
			return "", err
		}
		if doc.IsText() {
			inputText = string(doc.Data)
		} else {
			attachments = append(attachments, Attachment{MIMEType: doc.MIMEType, Data: doc.Data})
		}
	} else if t.needsDocument {
		return "", fmt.Errorf("no input document for %s", req.Kind)
	}

	prompt := BuildExtractionPrompt(t.output(preamble), inputText)

	var lastErr error
	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		out, err := i.client.GenerateJSON(ctx, prompt, t.tier, attachments...)
		if err != nil {
			// Provider errors are not retried here; the caller owns retry policy.
			return "", fmt.Errorf("model call failed: %w", err)
		}
		out = CleanJSONBlock(out)

		err = schemas.ValidatePayload(t.schema, out)
		if err == nil {
			return out, nil
		}
		var ve *schemas.ValidationError
		if !errors.As(err, &ve) {
			return "", err
		}
		lastErr = fmt.Errorf("model output failed validation: %s", ve.Summary())
		i.log.Debug("retrying invalid model output", "kind", req.Kind, "attempt", attempt, "error", ve.Summary())
	}
	return "", lastErr
}

func (i *Inferer) load(ctx context.Context, ref string) (*Document, error) {
	if i.docs == nil {
		return nil, fmt.Errorf("document storage is not configured")
	}
	doc, err := i.docs.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", ref, err)
	}
	return doc, nil
}

func (i *Inferer) promptData(ctx context.Context, req pipeline.InferenceRequest) (map[string]string, error) {
	data := map[string]string{
		"CandidateName": "the candidate",
		"Baseline":      "No prior evaluation is available.",
		"PriorAnalyses": "No document analyses are available.",
	}
	if i.source == nil {
		return data, nil
	}

	app, err := i.source.GetApplication(ctx, req.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	if app == nil {
		return nil, fmt.Errorf("application %s not found", req.ApplicationID)
	}
	data["CandidateName"] = app.CandidateName

	switch req.Kind {
	case pipeline.InferInterview:
		lineage, err := i.source.GetEvaluationLineage(ctx, req.ApplicationID)
		if err != nil {
			return nil, fmt.Errorf("failed to load evaluation: %w", err)
		}
		if lineage != nil {
			data["Baseline"] = baselineText(lineage)
		}
	case pipeline.InferCandidateEvaluation:
		records, err := i.source.ListAnalyses(ctx, req.ApplicationID)
		if err != nil {
			return nil, fmt.Errorf("failed to load analyses: %w", err)
		}
		if prior := priorAnalysesText(records); prior != "" {
			data["PriorAnalyses"] = prior
		}
	}
	return data, nil
}

func baselineText(l *types.EvaluationLineage) string {
	b, _ := json.MarshalIndent(struct {
		types.Scores
		Recommendation types.Recommendation `json:"recommendation"`
		Summary        string               `json:"summary,omitempty"`
		Strengths      []string             `json:"strengths,omitempty"`
		Concerns       []string             `json:"concerns,omitempty"`
	}{l.Scores, l.Recommendation, l.Summary, l.Strengths, l.Concerns}, "", "  ")
	return string(b)
}

// priorAnalysesText lists completed CV and DISC analyses as JSON.
func priorAnalysesText(records []types.AnalysisRecord) string {
	prior := make(map[types.AnalysisKind]types.AnalysisPayload)
	for _, r := range records {
		if r.Status != types.AnalysisCompleted || r.Analysis == nil || r.Kind == types.AnalysisInterview {
			continue
		}
		prior[r.Kind] = r.Analysis
	}
	if len(prior) == 0 {
		return ""
	}
	b, err := json.MarshalIndent(prior, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
