package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

const lineageColumns = `application_id, overall_score, cultural_fit_score, skills_match_score,
	communication_score, recommendation, summary, strengths, concerns, raw_payload, evaluation_stage,
	initial_overall_score, initial_skills_match_score, initial_communication_score,
	initial_cultural_fit_score, initial_recommendation, created_at, updated_at`

func scanLineage(row rowScanner) (*types.EvaluationLineage, error) {
	var l types.EvaluationLineage
	var raw []byte
	err := row.Scan(&l.ApplicationID, &l.Overall, &l.CulturalFit, &l.SkillsMatch,
		&l.Communication, &l.Recommendation, &l.Summary, &l.Strengths, &l.Concerns, &raw, &l.Stage,
		&l.InitialOverallScore, &l.InitialSkillsMatchScore, &l.InitialCommunicationScore,
		&l.InitialCulturalFitScore, &l.InitialRecommendation, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		l.RawPayload = raw
	}
	return &l, nil
}

// GetEvaluationLineage retrieves the evaluation lineage of an application
func (db *DB) GetEvaluationLineage(ctx context.Context, applicationID uuid.UUID) (*types.EvaluationLineage, error) {
	return getLineage(ctx, db.pool, applicationID, false)
}

func getLineage(ctx context.Context, q querier, applicationID uuid.UUID, forUpdate bool) (*types.EvaluationLineage, error) {
	query := `SELECT ` + lineageColumns + ` FROM evaluation_lineages WHERE application_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	l, err := scanLineage(q.QueryRow(ctx, query, applicationID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get evaluation lineage: %w", err)
	}
	return l, nil
}

func saveLineage(ctx context.Context, tx pgx.Tx, l *types.EvaluationLineage) (*types.EvaluationLineage, error) {
	var raw []byte
	if len(l.RawPayload) > 0 {
		raw = l.RawPayload
	}
	saved, err := scanLineage(tx.QueryRow(ctx,
		`INSERT INTO evaluation_lineages (application_id, overall_score, cultural_fit_score, skills_match_score,
			communication_score, recommendation, summary, strengths, concerns, raw_payload, evaluation_stage,
			initial_overall_score, initial_skills_match_score, initial_communication_score,
			initial_cultural_fit_score, initial_recommendation, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		 ON CONFLICT (application_id) DO UPDATE SET
			overall_score = EXCLUDED.overall_score,
			cultural_fit_score = EXCLUDED.cultural_fit_score,
			skills_match_score = EXCLUDED.skills_match_score,
			communication_score = EXCLUDED.communication_score,
			recommendation = EXCLUDED.recommendation,
			summary = EXCLUDED.summary,
			strengths = EXCLUDED.strengths,
			concerns = EXCLUDED.concerns,
			raw_payload = EXCLUDED.raw_payload,
			evaluation_stage = EXCLUDED.evaluation_stage,
			initial_overall_score = COALESCE(evaluation_lineages.initial_overall_score, EXCLUDED.initial_overall_score),
			initial_skills_match_score = COALESCE(evaluation_lineages.initial_skills_match_score, EXCLUDED.initial_skills_match_score),
			initial_communication_score = COALESCE(evaluation_lineages.initial_communication_score, EXCLUDED.initial_communication_score),
			initial_cultural_fit_score = COALESCE(evaluation_lineages.initial_cultural_fit_score, EXCLUDED.initial_cultural_fit_score),
			initial_recommendation = COALESCE(evaluation_lineages.initial_recommendation, EXCLUDED.initial_recommendation),
			updated_at = NOW()
		 RETURNING `+lineageColumns,
		l.ApplicationID, l.Overall, l.CulturalFit, l.SkillsMatch,
		l.Communication, l.Recommendation, l.Summary, l.Strengths, l.Concerns, raw, l.Stage,
		l.InitialOverallScore, l.InitialSkillsMatchScore, l.InitialCommunicationScore,
		l.InitialCulturalFitScore, l.InitialRecommendation,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to save evaluation lineage: %w", err)
	}
	return saved, nil
}

// ClaimEvaluation records token as the in-flight candidate evaluation
func (db *DB) ClaimEvaluation(ctx context.Context, applicationID, token uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`INSERT INTO evaluation_claims (application_id, claim_token)
		 VALUES ($1, $2)
		 ON CONFLICT (application_id) DO NOTHING`,
		applicationID, token,
	)
	if err != nil {
		return fmt.Errorf("failed to claim evaluation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pipeline.ErrAlreadyInProgress
	}
	return nil
}

// CompleteEvaluation releases the claim held by token and writes the folded
// lineage in the same transaction
func (db *DB) CompleteEvaluation(ctx context.Context, applicationID, token uuid.UUID, fold pipeline.LineageFold) (*types.EvaluationLineage, error) {
	var saved *types.EvaluationLineage
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM evaluation_claims WHERE application_id = $1 AND claim_token = $2`,
			applicationID, token)
		if err != nil {
			return fmt.Errorf("failed to release evaluation claim: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return pipeline.ErrConcurrencyConflict
		}

		current, err := getLineage(ctx, tx, applicationID, true)
		if err != nil {
			return err
		}
		next, err := fold(current)
		if err != nil {
			return err
		}
		saved, err = saveLineage(ctx, tx, next)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ReleaseEvaluation drops the claim held by token
func (db *DB) ReleaseEvaluation(ctx context.Context, applicationID, token uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM evaluation_claims WHERE application_id = $1 AND claim_token = $2`,
		applicationID, token)
	if err != nil {
		return false, fmt.Errorf("failed to release evaluation claim: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ResetEvaluationClaim drops any evaluation claim of an application
func (db *DB) ResetEvaluationClaim(ctx context.Context, applicationID uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM evaluation_claims WHERE application_id = $1`, applicationID)
	if err != nil {
		return false, fmt.Errorf("failed to reset evaluation claim: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
