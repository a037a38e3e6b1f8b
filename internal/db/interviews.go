package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

const interviewColumns = `id, application_id, status, scheduled_at, interview_type, location,
	meeting_link, created_by, created_at, updated_at`

const historyColumns = `id, interview_id, change_type, previous_date, new_date, previous_type,
	new_type, changed_by, notes, created_at`

func scanInterview(row rowScanner) (*types.Interview, error) {
	var iv types.Interview
	err := row.Scan(&iv.ID, &iv.ApplicationID, &iv.Status, &iv.ScheduledAt, &iv.Type, &iv.Location,
		&iv.MeetingLink, &iv.CreatedBy, &iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, e *types.InterviewHistoryEntry) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO interview_history (`+historyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.InterviewID, e.ChangeType, e.PreviousDate, e.NewDate, e.PreviousType,
		e.NewType, e.ChangedBy, e.Notes, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interview history: %w", err)
	}
	return nil
}

// CreateInterview inserts an interview with its first history entry and, when
// advance is set, moves the application in the same transaction
func (db *DB) CreateInterview(ctx context.Context, iv *types.Interview, entry *types.InterviewHistoryEntry, advance *types.StatusUpdate) (*types.Interview, error) {
	var created *types.Interview
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		if advance != nil {
			_, ok, err := updateStatus(ctx, tx, *advance)
			if err != nil {
				return err
			}
			if !ok {
				return pipeline.ErrConcurrencyConflict
			}
		}

		var err error
		created, err = scanInterview(tx.QueryRow(ctx,
			`INSERT INTO interviews (`+interviewColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING `+interviewColumns,
			iv.ID, iv.ApplicationID, iv.Status, iv.ScheduledAt, iv.Type, iv.Location,
			iv.MeetingLink, iv.CreatedBy, iv.CreatedAt, iv.UpdatedAt,
		))
		if err != nil {
			return fmt.Errorf("failed to create interview: %w", err)
		}
		return insertHistory(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetInterview retrieves an interview by ID
func (db *DB) GetInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error) {
	iv, err := scanInterview(db.pool.QueryRow(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	return iv, nil
}

// ListInterviews retrieves the interviews of an application, oldest first
func (db *DB) ListInterviews(ctx context.Context, applicationID uuid.UUID) ([]types.Interview, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE application_id = $1 ORDER BY created_at ASC`,
		applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	defer rows.Close()

	var interviews []types.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		interviews = append(interviews, *iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	return interviews, nil
}

// UpdateInterview writes iv and appends entry while the stored status is still expected
func (db *DB) UpdateInterview(ctx context.Context, iv *types.Interview, expected types.InterviewStatus, entry *types.InterviewHistoryEntry) (*types.Interview, error) {
	var updated *types.Interview
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		updated, err = scanInterview(tx.QueryRow(ctx,
			`UPDATE interviews SET status = $3, scheduled_at = $4, interview_type = $5,
				location = $6, meeting_link = $7, updated_at = $8
			 WHERE id = $1 AND status = $2
			 RETURNING `+interviewColumns,
			iv.ID, expected, iv.Status, iv.ScheduledAt, iv.Type, iv.Location, iv.MeetingLink, iv.UpdatedAt,
		))
		if err != nil {
			if isNoRows(err) {
				return pipeline.ErrConcurrencyConflict
			}
			return fmt.Errorf("failed to update interview: %w", err)
		}
		return insertHistory(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListInterviewHistory retrieves the change log of an interview, oldest first
func (db *DB) ListInterviewHistory(ctx context.Context, interviewID uuid.UUID) ([]types.InterviewHistoryEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+historyColumns+` FROM interview_history WHERE interview_id = $1 ORDER BY created_at ASC`,
		interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interview history: %w", err)
	}
	defer rows.Close()

	var entries []types.InterviewHistoryEntry
	for rows.Next() {
		var e types.InterviewHistoryEntry
		if err := rows.Scan(&e.ID, &e.InterviewID, &e.ChangeType, &e.PreviousDate, &e.NewDate, &e.PreviousType,
			&e.NewType, &e.ChangedBy, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interview history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list interview history: %w", err)
	}
	return entries, nil
}
