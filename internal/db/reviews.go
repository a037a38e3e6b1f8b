package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

// reviewColumns maps each review flag to its column.
var reviewColumns = map[types.ReviewFlag]string{
	types.ReviewAIAnalysis:   "ai_analysis_reviewed",
	types.ReviewCVAnalysis:   "cv_analysis_reviewed",
	types.ReviewDISCAnalysis: "disc_analysis_reviewed",
	types.ReviewBusinessCase: "business_case_reviewed",
}

const reviewSelect = `application_id, ai_analysis_reviewed, cv_analysis_reviewed,
	disc_analysis_reviewed, business_case_reviewed, updated_by, updated_at`

func scanReview(row rowScanner) (*types.ReviewProgress, error) {
	var p types.ReviewProgress
	err := row.Scan(&p.ApplicationID, &p.AIAnalysisReviewed, &p.CVAnalysisReviewed,
		&p.DISCAnalysisReviewed, &p.BusinessCaseReviewed, &p.UpdatedBy, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetReviewProgress retrieves the review checklist of an application
func (db *DB) GetReviewProgress(ctx context.Context, applicationID uuid.UUID) (*types.ReviewProgress, error) {
	p, err := scanReview(db.pool.QueryRow(ctx,
		`SELECT `+reviewSelect+` FROM review_progress WHERE application_id = $1`, applicationID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get review progress: %w", err)
	}
	return p, nil
}

// SetReviewFlag upserts a single checklist item
func (db *DB) SetReviewFlag(ctx context.Context, applicationID uuid.UUID, flag types.ReviewFlag, value bool, actor uuid.UUID) (*types.ReviewProgress, error) {
	column, ok := reviewColumns[flag]
	if !ok {
		return nil, fmt.Errorf("unknown review flag: %s", flag)
	}

	// column comes from the fixed map above.
	query := fmt.Sprintf(
		`INSERT INTO review_progress (application_id, %[1]s, updated_by, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (application_id) DO UPDATE SET %[1]s = $2, updated_by = $3, updated_at = NOW()
		 RETURNING %[2]s`, column, reviewSelect)

	p, err := scanReview(db.pool.QueryRow(ctx, query, applicationID, value, actor))
	if err != nil {
		return nil, fmt.Errorf("failed to set review flag %s: %w", flag, err)
	}
	return p, nil
}
