package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

const decisionColumns = `id, application_id, decision, decided_by, reasoning, salary_offered,
	start_date, rejection_reason, created_at`

func scanDecision(row rowScanner) (*types.HiringDecision, error) {
	var d types.HiringDecision
	err := row.Scan(&d.ID, &d.ApplicationID, &d.Decision, &d.DecidedBy, &d.Reasoning, &d.SalaryOffered,
		&d.StartDate, &d.RejectionReason, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// RecordDecision appends a hiring decision and applies the optional status
// update in the same transaction. The application row stays locked until commit,
// and a terminal application rejects the decision with ErrConcurrencyConflict.
func (db *DB) RecordDecision(ctx context.Context, d *types.HiringDecision, advance *types.StatusUpdate) (*types.HiringDecision, error) {
	var saved *types.HiringDecision
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var status types.Status
		err := tx.QueryRow(ctx, `SELECT status FROM applications WHERE id = $1 FOR UPDATE`, d.ApplicationID).Scan(&status)
		if isNoRows(err) {
			return pipeline.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock application: %w", err)
		}
		if status.IsTerminal() {
			return pipeline.ErrConcurrencyConflict
		}

		saved, err = scanDecision(tx.QueryRow(ctx,
			`INSERT INTO hiring_decisions (`+decisionColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING `+decisionColumns,
			d.ID, d.ApplicationID, d.Decision, d.DecidedBy, d.Reasoning, d.SalaryOffered,
			d.StartDate, d.RejectionReason, d.CreatedAt,
		))
		if err != nil {
			return fmt.Errorf("failed to record decision: %w", err)
		}

		if advance != nil {
			_, ok, err := updateStatus(ctx, tx, *advance)
			if err != nil {
				return err
			}
			if !ok {
				return pipeline.ErrConcurrencyConflict
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ListDecisions retrieves the decision history of an application, oldest first
func (db *DB) ListDecisions(ctx context.Context, applicationID uuid.UUID) ([]types.HiringDecision, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+decisionColumns+` FROM hiring_decisions WHERE application_id = $1 ORDER BY created_at ASC`,
		applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []types.HiringDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	return decisions, nil
}
