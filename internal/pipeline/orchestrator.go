package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/hiring-pipeline/internal/logging"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// DefaultInferenceTimeout bounds a single inference call.
const DefaultInferenceTimeout = 2 * time.Minute

// OrchestratorConfig tunes the Orchestrator.
type OrchestratorConfig struct {
	// InferenceTimeout bounds each inference call; zero means DefaultInferenceTimeout.
	InferenceTimeout time.Duration
}

// Orchestrator drives analysis records and candidate evaluations through their
// lifecycle. Single-flight is enforced by the store's conditional claims, so
// several Orchestrators in different processes may share one store.
type Orchestrator struct {
	store     Store
	inferer   Inferer
	publisher Publisher
	log       *logging.Logger
	now       func() time.Time
	timeout   time.Duration

	wg sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(opts Options, inferer Inferer, cfg OrchestratorConfig) *Orchestrator {
	opts = opts.withDefaults()
	timeout := cfg.InferenceTimeout
	if timeout <= 0 {
		timeout = DefaultInferenceTimeout
	}
	return &Orchestrator{
		store:     opts.Store,
		inferer:   inferer,
		publisher: opts.Publisher,
		log:       opts.Logger.With("component", "orchestrator"),
		now:       opts.Now,
		timeout:   timeout,
	}
}

// AnalysisRequest identifies an analysis to run.
type AnalysisRequest struct {
	Actor         uuid.UUID
	ApplicationID uuid.UUID
	Kind          types.AnalysisKind
	InputRef      string
}

// RequestAnalysis claims the (application, kind) record and runs the analysis in
// the background. It returns the processing record; callers poll or subscribe
// for the terminal state.
func (o *Orchestrator) RequestAnalysis(ctx context.Context, req AnalysisRequest) (*types.AnalysisRecord, error) {
	claimed, token, err := o.claimAnalysis(ctx, req)
	if err != nil {
		return nil, err
	}

	bg := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if _, err := o.runAnalysis(bg, req, token); err != nil {
			o.log.Warn("background analysis ended with error", "application_id", req.ApplicationID, "kind", req.Kind, "error", err)
		}
	}()
	return claimed, nil
}

// ExecuteAnalysis claims and runs an analysis, returning the terminal record.
// An inference failure is reported through the failed record, not as an error.
func (o *Orchestrator) ExecuteAnalysis(ctx context.Context, req AnalysisRequest) (*types.AnalysisRecord, error) {
	_, token, err := o.claimAnalysis(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.runAnalysis(ctx, req, token)
}

// AnalyzeDocuments requests cv and disc analyses for every document the
// application has uploaded, concurrently. Kinds already processing are skipped.
func (o *Orchestrator) AnalyzeDocuments(ctx context.Context, actor, applicationID uuid.UUID) ([]types.AnalysisRecord, error) {
	app, err := o.application(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	docs := map[types.AnalysisKind]string{
		types.AnalysisCV:   app.CVDocumentRef,
		types.AnalysisDISC: app.DISCDocumentRef,
	}
	if app.CVDocumentRef == "" && app.DISCDocumentRef == "" {
		return nil, &ValidationError{Field: "documents", Message: "application has no uploaded documents"}
	}

	var mu sync.Mutex
	var records []types.AnalysisRecord
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range []types.AnalysisKind{types.AnalysisCV, types.AnalysisDISC} {
		ref := docs[kind]
		if ref == "" {
			continue
		}
		g.Go(func() error {
			rec, err := o.RequestAnalysis(gctx, AnalysisRequest{Actor: actor, ApplicationID: applicationID, Kind: kind, InputRef: ref})
			if errors.Is(err, ErrAlreadyInProgress) {
				o.log.Info("document analysis already in progress", "application_id", applicationID, "kind", kind)
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			records = append(records, *rec)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetAnalysis returns the record for (application, kind) or ErrNotFound.
func (o *Orchestrator) GetAnalysis(ctx context.Context, applicationID uuid.UUID, kind types.AnalysisKind) (*types.AnalysisRecord, error) {
	rec, err := o.store.GetAnalysis(ctx, applicationID, kind)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// ListAnalyses returns every analysis record of an application.
func (o *Orchestrator) ListAnalyses(ctx context.Context, applicationID uuid.UUID) ([]types.AnalysisRecord, error) {
	if _, err := o.application(ctx, applicationID); err != nil {
		return nil, err
	}
	return o.store.ListAnalyses(ctx, applicationID)
}

// ResetAnalysis is the operator action for a stuck record: it force-resets
// processing to pending so the analysis can be requested again. It never runs
// automatically because the original call may still be in flight.
func (o *Orchestrator) ResetAnalysis(ctx context.Context, actor, applicationID uuid.UUID, kind types.AnalysisKind) (*types.AnalysisRecord, error) {
	if !kind.Valid() {
		return nil, &ValidationError{Field: "kind", Message: "unknown analysis kind " + string(kind)}
	}
	rec, reset, err := o.store.ResetAnalysis(ctx, applicationID, kind)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if !reset {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("analysis is %s, only processing analyses can be reset", rec.Status)}
	}
	o.log.Warn("analysis force-reset by operator", "application_id", applicationID, "kind", kind, "actor", actor)
	o.publish(ctx, types.EntityAnalysisRecord, rec.ID.String(), applicationID)
	return rec, nil
}

// Wait blocks until every background run started by this Orchestrator returns.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) claimAnalysis(ctx context.Context, req AnalysisRequest) (*types.AnalysisRecord, uuid.UUID, error) {
	if !req.Kind.Valid() {
		return nil, uuid.Nil, &ValidationError{Field: "kind", Message: "unknown analysis kind " + string(req.Kind)}
	}
	if _, err := o.application(ctx, req.ApplicationID); err != nil {
		return nil, uuid.Nil, err
	}

	if req.Kind == types.AnalysisInterview {
		lineage, err := o.store.GetEvaluationLineage(ctx, req.ApplicationID)
		if err != nil {
			return nil, uuid.Nil, err
		}
		if lineage == nil {
			return nil, uuid.Nil, ErrMissingBaselineEvaluation
		}
	}

	token := uuid.New()
	rec, err := o.store.ClaimAnalysis(ctx, ClaimRequest{
		ApplicationID: req.ApplicationID,
		Kind:          req.Kind,
		InputRef:      req.InputRef,
		Token:         token,
		RequestedBy:   req.Actor,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyInProgress) {
			o.log.Info("duplicate analysis trigger ignored", "application_id", req.ApplicationID, "kind", req.Kind)
		}
		return nil, uuid.Nil, err
	}

	o.log.Info("analysis claimed", "application_id", req.ApplicationID, "kind", req.Kind, "actor", req.Actor)
	o.publish(ctx, types.EntityAnalysisRecord, rec.ID.String(), req.ApplicationID)
	return rec, token, nil
}

func (o *Orchestrator) runAnalysis(ctx context.Context, req AnalysisRequest, token uuid.UUID) (*types.AnalysisRecord, error) {
	resp := o.infer(ctx, InferenceRequest{
		ApplicationID: req.ApplicationID,
		Kind:          InferenceKind(req.Kind),
		InputRef:      req.InputRef,
	})
	// The claim is held until a terminal write lands, so those writes outlive the caller.
	ctx = context.WithoutCancel(ctx)
	if !resp.Success {
		return o.fail(ctx, req, token, &InferenceError{Kind: string(req.Kind), Message: resp.Error})
	}

	payload, err := types.DecodeAnalysis(req.Kind, resp.Payload)
	if err != nil {
		return o.fail(ctx, req, token, &InferenceError{Kind: string(req.Kind), Message: "malformed payload", Cause: err})
	}
	if err := payload.Validate(); err != nil {
		return o.fail(ctx, req, token, &InferenceError{Kind: string(req.Kind), Message: "invalid payload", Cause: err})
	}

	if req.Kind == types.AnalysisInterview {
		return o.completeInterview(ctx, req, token, payload.(*types.InterviewAnalysis), resp)
	}

	rec, err := o.store.CompleteAnalysis(ctx, req.ApplicationID, req.Kind, token, AnalysisResult{
		Analysis: payload,
		Summary:  types.AnalysisSummary(payload),
		Raw:      resp.Payload,
	})
	if err != nil {
		return nil, o.staleWrite(req, err)
	}
	o.log.Info("analysis completed", "application_id", req.ApplicationID, "kind", req.Kind)
	o.publish(ctx, types.EntityAnalysisRecord, rec.ID.String(), req.ApplicationID)
	return rec, nil
}

func (o *Orchestrator) completeInterview(ctx context.Context, req AnalysisRequest, token uuid.UUID, analysis *types.InterviewAnalysis, resp InferenceResponse) (*types.AnalysisRecord, error) {
	next, err := Transition(types.StatusInterview, EventInterviewAnalyzed, GateFacts{InterviewAnalysisCompleted: true})
	if err != nil {
		return nil, err
	}
	advance := types.StatusUpdate{ApplicationID: req.ApplicationID, From: types.StatusInterview, To: next}

	fold := func(current *types.EvaluationLineage) (*types.EvaluationLineage, AnalysisResult, error) {
		lineage, normalized, err := RollForward(current, analysis, resp.Payload, o.now())
		if err != nil {
			return nil, AnalysisResult{}, err
		}
		lineage.ApplicationID = req.ApplicationID
		return lineage, AnalysisResult{Analysis: normalized, Summary: normalized.Summary, Raw: resp.Payload}, nil
	}

	done, err := o.store.CompleteInterviewAnalysis(ctx, req.ApplicationID, token, fold, advance)
	if errors.Is(err, ErrMissingBaselineEvaluation) {
		return o.fail(ctx, req, token, err)
	}
	if err != nil {
		return nil, o.staleWrite(req, err)
	}

	o.log.Info("interview analysis completed",
		"application_id", req.ApplicationID,
		"overall_score", done.Lineage.Overall,
		"stage", done.Lineage.Stage,
		"status_advanced", done.StatusAdvanced)
	if !done.StatusAdvanced {
		o.log.Info("interviewed transition skipped, application moved on", "application_id", req.ApplicationID)
	}

	o.publish(ctx, types.EntityAnalysisRecord, done.Record.ID.String(), req.ApplicationID)
	o.publish(ctx, types.EntityEvaluationLineage, req.ApplicationID.String(), req.ApplicationID)
	if done.StatusAdvanced {
		o.publish(ctx, types.EntityApplication, req.ApplicationID.String(), req.ApplicationID)
	}
	return done.Record, nil
}

func (o *Orchestrator) fail(ctx context.Context, req AnalysisRequest, token uuid.UUID, cause error) (*types.AnalysisRecord, error) {
	o.log.Warn("analysis failed", "application_id", req.ApplicationID, "kind", req.Kind, "error", cause)
	rec, err := o.store.FailAnalysis(ctx, req.ApplicationID, req.Kind, token, cause.Error())
	if err != nil {
		return nil, o.staleWrite(req, err)
	}
	o.publish(ctx, types.EntityAnalysisRecord, rec.ID.String(), req.ApplicationID)
	if errors.Is(cause, ErrMissingBaselineEvaluation) {
		return rec, cause
	}
	return rec, nil
}

// staleWrite logs a discarded completion and passes err through.
func (o *Orchestrator) staleWrite(req AnalysisRequest, err error) error {
	if errors.Is(err, ErrConcurrencyConflict) {
		o.log.Warn("stale analysis result discarded", "application_id", req.ApplicationID, "kind", req.Kind)
	}
	return err
}

func (o *Orchestrator) infer(ctx context.Context, req InferenceRequest) InferenceResponse {
	if o.inferer == nil {
		return InferenceResponse{Error: "inference is not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp := o.inferer.Infer(ctx, req)
	if !resp.Success && resp.Error == "" {
		if ctx.Err() != nil {
			resp.Error = "inference timed out"
		} else {
			resp.Error = "inference failed"
		}
	}
	return resp
}

func (o *Orchestrator) application(ctx context.Context, id uuid.UUID) (*types.Application, error) {
	app, err := o.store.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNotFound
	}
	return app, nil
}

func (o *Orchestrator) publish(ctx context.Context, kind types.EntityKind, entityID string, applicationID uuid.UUID) {
	o.publisher.Publish(ctx, types.ChangeEvent{
		EntityKind:    kind,
		EntityID:      entityID,
		ApplicationID: applicationID,
		OccurredAt:    o.now(),
	})
}
