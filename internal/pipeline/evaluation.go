package pipeline

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

// RequestCandidateEvaluation claims the application's evaluation slot and runs
// the candidate evaluation in the background. At most one evaluation is in flight
// per application; a second request gets ErrAlreadyInProgress.
func (o *Orchestrator) RequestCandidateEvaluation(ctx context.Context, actor, applicationID uuid.UUID) error {
	app, token, err := o.claimEvaluation(ctx, applicationID)
	if err != nil {
		return err
	}

	bg := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if _, err := o.runEvaluation(bg, actor, app, token); err != nil {
			o.log.Warn("background candidate evaluation ended with error", "application_id", applicationID, "error", err)
		}
	}()
	return nil
}

// ExecuteCandidateEvaluation claims the evaluation slot, runs the evaluation and
// returns the updated lineage.
func (o *Orchestrator) ExecuteCandidateEvaluation(ctx context.Context, actor, applicationID uuid.UUID) (*types.EvaluationLineage, error) {
	app, token, err := o.claimEvaluation(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return o.runEvaluation(ctx, actor, app, token)
}

// ResetCandidateEvaluation drops a stuck evaluation claim. It reports false when
// no evaluation was in flight.
func (o *Orchestrator) ResetCandidateEvaluation(ctx context.Context, actor, applicationID uuid.UUID) (bool, error) {
	if _, err := o.application(ctx, applicationID); err != nil {
		return false, err
	}
	reset, err := o.store.ResetEvaluationClaim(ctx, applicationID)
	if err != nil {
		return false, err
	}
	if reset {
		o.log.Warn("candidate evaluation claim force-reset by operator", "application_id", applicationID, "actor", actor)
	}
	return reset, nil
}

// GetEvaluation returns the evaluation lineage or ErrNotFound.
func (o *Orchestrator) GetEvaluation(ctx context.Context, applicationID uuid.UUID) (*types.EvaluationLineage, error) {
	lineage, err := o.store.GetEvaluationLineage(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if lineage == nil {
		return nil, ErrNotFound
	}
	return lineage, nil
}

func (o *Orchestrator) claimEvaluation(ctx context.Context, applicationID uuid.UUID) (*types.Application, uuid.UUID, error) {
	app, err := o.application(ctx, applicationID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	lineage, err := o.store.GetEvaluationLineage(ctx, applicationID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if lineage != nil && lineage.Stage == types.StagePostInterview {
		return nil, uuid.Nil, ErrLineageFinalized
	}

	token := uuid.New()
	if err := o.store.ClaimEvaluation(ctx, applicationID, token); err != nil {
		if errors.Is(err, ErrAlreadyInProgress) {
			o.log.Info("duplicate candidate evaluation ignored", "application_id", applicationID)
		}
		return nil, uuid.Nil, err
	}
	return app, token, nil
}

func (o *Orchestrator) runEvaluation(ctx context.Context, actor uuid.UUID, app *types.Application, token uuid.UUID) (*types.EvaluationLineage, error) {
	resp := o.infer(ctx, InferenceRequest{
		ApplicationID: app.ID,
		Kind:          InferCandidateEvaluation,
		InputRef:      app.CVDocumentRef,
	})
	// The claim is held until it is completed or released, so those writes outlive the caller.
	ctx = context.WithoutCancel(ctx)
	if !resp.Success {
		return nil, o.releaseEvaluation(ctx, app.ID, token, &InferenceError{Kind: string(InferCandidateEvaluation), Message: resp.Error})
	}

	var eval types.CandidateEvaluation
	if err := json.Unmarshal(resp.Payload, &eval); err != nil {
		return nil, o.releaseEvaluation(ctx, app.ID, token, &InferenceError{Kind: string(InferCandidateEvaluation), Message: "malformed payload", Cause: err})
	}
	if !eval.Recommendation.Valid() {
		return nil, o.releaseEvaluation(ctx, app.ID, token, &InferenceError{Kind: string(InferCandidateEvaluation), Message: "unknown recommendation " + string(eval.Recommendation)})
	}
	if err := eval.Validate(); err != nil {
		return nil, o.releaseEvaluation(ctx, app.ID, token, &InferenceError{Kind: string(InferCandidateEvaluation), Message: "invalid payload", Cause: err})
	}

	lineage, err := o.store.CompleteEvaluation(ctx, app.ID, token, func(current *types.EvaluationLineage) (*types.EvaluationLineage, error) {
		next, err := ApplyCandidateEvaluation(current, &eval, resp.Payload, o.now())
		if err != nil {
			return nil, err
		}
		next.ApplicationID = app.ID
		return next, nil
	})
	if errors.Is(err, ErrLineageFinalized) {
		return nil, o.releaseEvaluation(ctx, app.ID, token, err)
	}
	if errors.Is(err, ErrConcurrencyConflict) {
		o.log.Warn("stale candidate evaluation discarded", "application_id", app.ID)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	o.log.Info("candidate evaluation completed",
		"application_id", app.ID,
		"overall_score", lineage.Overall,
		"recommendation", lineage.Recommendation,
		"actor", actor)
	o.publish(ctx, types.EntityEvaluationLineage, app.ID.String(), app.ID)
	return lineage, nil
}

// releaseEvaluation drops the claim after a failed run and returns cause.
func (o *Orchestrator) releaseEvaluation(ctx context.Context, applicationID, token uuid.UUID, cause error) error {
	o.log.Warn("candidate evaluation failed", "application_id", applicationID, "error", cause)
	if _, err := o.store.ReleaseEvaluation(ctx, applicationID, token); err != nil {
		o.log.Error("failed to release evaluation claim", "application_id", applicationID, "error", err)
	}
	return cause
}
