package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

const analysisColumns = `id, application_id, kind, status, analysis, summary, error_message, input_ref,
	claim_token, requested_by, started_at, completed_at, created_at, updated_at`

func scanAnalysis(row rowScanner) (*types.AnalysisRecord, error) {
	var r types.AnalysisRecord
	var payload []byte
	err := row.Scan(&r.ID, &r.ApplicationID, &r.Kind, &r.Status, &payload, &r.Summary, &r.ErrorMessage, &r.InputRef,
		&r.ClaimToken, &r.RequestedBy, &r.StartedAt, &r.CompletedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		decoded, err := types.DecodeAnalysis(r.Kind, payload)
		if err != nil {
			return nil, err
		}
		r.Analysis = decoded
	}
	return &r, nil
}

// GetAnalysis retrieves the analysis record for (application, kind)
func (db *DB) GetAnalysis(ctx context.Context, applicationID uuid.UUID, kind types.AnalysisKind) (*types.AnalysisRecord, error) {
	r, err := scanAnalysis(db.pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM analysis_records WHERE application_id = $1 AND kind = $2`,
		applicationID, kind))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s analysis: %w", kind, err)
	}
	return r, nil
}

// ListAnalyses retrieves every analysis record of an application
func (db *DB) ListAnalyses(ctx context.Context, applicationID uuid.UUID) ([]types.AnalysisRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+analysisColumns+` FROM analysis_records WHERE application_id = $1
		 ORDER BY CASE kind WHEN 'cv' THEN 0 WHEN 'disc' THEN 1 ELSE 2 END`,
		applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var records []types.AnalysisRecord
	for rows.Next() {
		r, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return records, nil
}

// ClaimAnalysis moves the (application, kind) record to processing under
// req.Token. The upsert only fires when the record is absent or not already
// processing, so concurrent claims serialize on the unique key.
func (db *DB) ClaimAnalysis(ctx context.Context, req pipeline.ClaimRequest) (*types.AnalysisRecord, error) {
	r, err := scanAnalysis(db.pool.QueryRow(ctx,
		`INSERT INTO analysis_records (application_id, kind, status, input_ref, claim_token, requested_by, started_at)
		 VALUES ($1, $2, 'processing', $3, $4, $5, NOW())
		 ON CONFLICT (application_id, kind) DO UPDATE SET
			status = 'processing',
			input_ref = EXCLUDED.input_ref,
			claim_token = EXCLUDED.claim_token,
			requested_by = EXCLUDED.requested_by,
			error_message = NULL,
			started_at = NOW(),
			completed_at = NULL,
			updated_at = NOW()
		 WHERE analysis_records.status <> 'processing'
		 RETURNING `+analysisColumns,
		req.ApplicationID, req.Kind, req.InputRef, req.Token, req.RequestedBy,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, pipeline.ErrAlreadyInProgress
		}
		return nil, fmt.Errorf("failed to claim %s analysis: %w", req.Kind, err)
	}
	return r, nil
}

// CompleteAnalysis stores a successful result while token still holds the record
func (db *DB) CompleteAnalysis(ctx context.Context, applicationID uuid.UUID, kind types.AnalysisKind, token uuid.UUID, result pipeline.AnalysisResult) (*types.AnalysisRecord, error) {
	return completeAnalysis(ctx, db.pool, applicationID, kind, token, result)
}

func completeAnalysis(ctx context.Context, q querier, applicationID uuid.UUID, kind types.AnalysisKind, token uuid.UUID, result pipeline.AnalysisResult) (*types.AnalysisRecord, error) {
	payload, err := json.Marshal(result.Analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s analysis: %w", kind, err)
	}

	r, err := scanAnalysis(q.QueryRow(ctx,
		`UPDATE analysis_records SET
			status = 'completed',
			analysis = $4,
			summary = $5,
			error_message = NULL,
			claim_token = NULL,
			completed_at = NOW(),
			updated_at = NOW()
		 WHERE application_id = $1 AND kind = $2 AND status = 'processing' AND claim_token = $3
		 RETURNING `+analysisColumns,
		applicationID, kind, token, payload, result.Summary,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, pipeline.ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("failed to complete %s analysis: %w", kind, err)
	}
	return r, nil
}

// FailAnalysis records a failure while token still holds the record
func (db *DB) FailAnalysis(ctx context.Context, applicationID uuid.UUID, kind types.AnalysisKind, token uuid.UUID, message string) (*types.AnalysisRecord, error) {
	r, err := scanAnalysis(db.pool.QueryRow(ctx,
		`UPDATE analysis_records SET
			status = 'failed',
			error_message = $4,
			claim_token = NULL,
			completed_at = NOW(),
			updated_at = NOW()
		 WHERE application_id = $1 AND kind = $2 AND status = 'processing' AND claim_token = $3
		 RETURNING `+analysisColumns,
		applicationID, kind, token, message,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, pipeline.ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("failed to fail %s analysis: %w", kind, err)
	}
	return r, nil
}

// CompleteInterviewAnalysis completes the interview record, rolls the lineage
// forward and conditionally advances the application in one transaction
func (db *DB) CompleteInterviewAnalysis(ctx context.Context, applicationID, token uuid.UUID, fold pipeline.InterviewFold, advance types.StatusUpdate) (*pipeline.InterviewCompletion, error) {
	var done pipeline.InterviewCompletion
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var held uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT id FROM analysis_records
			 WHERE application_id = $1 AND kind = 'interview' AND status = 'processing' AND claim_token = $2
			 FOR UPDATE`,
			applicationID, token,
		).Scan(&held)
		if err != nil {
			if isNoRows(err) {
				return pipeline.ErrConcurrencyConflict
			}
			return fmt.Errorf("failed to lock interview analysis: %w", err)
		}

		current, err := getLineage(ctx, tx, applicationID, true)
		if err != nil {
			return err
		}
		next, result, err := fold(current)
		if err != nil {
			return err
		}

		if done.Record, err = completeAnalysis(ctx, tx, applicationID, types.AnalysisInterview, token, result); err != nil {
			return err
		}
		if done.Lineage, err = saveLineage(ctx, tx, next); err != nil {
			return err
		}

		done.Application, done.StatusAdvanced, err = updateStatus(ctx, tx, advance)
		if err != nil {
			return err
		}
		if !done.StatusAdvanced {
			done.Application, err = getApplication(ctx, tx, applicationID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &done, nil
}

// ResetAnalysis force-resets a processing record to pending
func (db *DB) ResetAnalysis(ctx context.Context, applicationID uuid.UUID, kind types.AnalysisKind) (*types.AnalysisRecord, bool, error) {
	r, err := scanAnalysis(db.pool.QueryRow(ctx,
		`UPDATE analysis_records SET status = 'pending', claim_token = NULL, updated_at = NOW()
		 WHERE application_id = $1 AND kind = $2 AND status = 'processing'
		 RETURNING `+analysisColumns,
		applicationID, kind))
	if err == nil {
		return r, true, nil
	}
	if !isNoRows(err) {
		return nil, false, fmt.Errorf("failed to reset %s analysis: %w", kind, err)
	}

	r, err = db.GetAnalysis(ctx, applicationID, kind)
	if err != nil {
		return nil, false, err
	}
	return r, false, nil
}
