package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

const applicationColumns = `id, candidate_id, candidate_name, candidate_email, job_id, status,
	cv_document_ref, disc_document_ref, business_case_completed, business_case_completed_at,
	bcq_invitation_sent_at, assigned_to, created_at, updated_at`

// defaultListLimit caps list queries that do not set a limit.
const defaultListLimit = 50

func scanApplication(row rowScanner) (*types.Application, error) {
	var a types.Application
	err := row.Scan(&a.ID, &a.CandidateID, &a.CandidateName, &a.CandidateEmail, &a.JobID, &a.Status,
		&a.CVDocumentRef, &a.DISCDocumentRef, &a.BusinessCaseCompleted, &a.BusinessCaseCompletedAt,
		&a.BCQInvitationSentAt, &a.AssignedTo, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateApplication inserts a new application in the pending status
func (db *DB) CreateApplication(ctx context.Context, in *types.NewApplication) (*types.Application, error) {
	app, err := scanApplication(db.pool.QueryRow(ctx,
		`INSERT INTO applications (candidate_id, candidate_name, candidate_email, job_id, cv_document_ref, disc_document_ref)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+applicationColumns,
		in.CandidateID, in.CandidateName, in.CandidateEmail, in.JobID, in.CVDocumentRef, in.DISCDocumentRef,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return app, nil
}

// GetApplication retrieves an application by ID
func (db *DB) GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error) {
	return getApplication(ctx, db.pool, id)
}

func getApplication(ctx context.Context, q querier, id uuid.UUID) (*types.Application, error) {
	app, err := scanApplication(q.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// buildApplicationQuery builds the filtered list query and its arguments
func buildApplicationQuery(filter types.ApplicationFilter) (string, []any) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}

	query := `SELECT ` + applicationColumns + ` FROM applications WHERE 1=1`
	args := []any{}
	argNum := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filter.Status)
		argNum++
	}
	if filter.JobID != nil {
		query += fmt.Sprintf(" AND job_id = $%d", argNum)
		args = append(args, *filter.JobID)
		argNum++
	}
	if filter.AssignedTo != nil {
		query += fmt.Sprintf(" AND assigned_to = $%d", argNum)
		args = append(args, *filter.AssignedTo)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filter.Limit)
	return query, args
}

// ListApplications retrieves applications with optional filters
func (db *DB) ListApplications(ctx context.Context, filter types.ApplicationFilter) ([]types.Application, error) {
	query, args := buildApplicationQuery(filter)
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []types.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// UpdateApplicationStatus applies a conditional status write. The boolean is
// false when the stored status no longer matched upd.From; the current row is
// returned either way.
func (db *DB) UpdateApplicationStatus(ctx context.Context, upd types.StatusUpdate) (*types.Application, bool, error) {
	app, ok, err := updateStatus(ctx, db.pool, upd)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		app, err = db.GetApplication(ctx, upd.ApplicationID)
		if err != nil {
			return nil, false, err
		}
	}
	return app, ok, nil
}

func updateStatus(ctx context.Context, q querier, upd types.StatusUpdate) (*types.Application, bool, error) {
	app, err := scanApplication(q.QueryRow(ctx,
		`UPDATE applications
		 SET status = $3,
		     bcq_invitation_sent_at = COALESCE($4, bcq_invitation_sent_at),
		     updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING `+applicationColumns,
		upd.ApplicationID, upd.From, upd.To, upd.BCQInvitationSentAt,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to update application status: %w", err)
	}
	return app, true, nil
}

// MarkBusinessCaseCompleted records the candidate's business-case submission.
// The first completion time is kept on resubmission.
func (db *DB) MarkBusinessCaseCompleted(ctx context.Context, id uuid.UUID) (*types.Application, error) {
	app, err := scanApplication(db.pool.QueryRow(ctx,
		`UPDATE applications
		 SET business_case_completed = TRUE,
		     business_case_completed_at = COALESCE(business_case_completed_at, NOW()),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+applicationColumns, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to mark business case completed: %w", err)
	}
	return app, nil
}

// AssignApplication sets or clears the responsible recruiter
func (db *DB) AssignApplication(ctx context.Context, id uuid.UUID, recruiterID *uuid.UUID) (*types.Application, error) {
	app, err := scanApplication(db.pool.QueryRow(ctx,
		`UPDATE applications SET assigned_to = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+applicationColumns, id, recruiterID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to assign application: %w", err)
	}
	return app, nil
}
