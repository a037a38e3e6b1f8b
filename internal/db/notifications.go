package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

const notificationColumns = `id, application_id, notification_type, recipient_email, subject,
	status, error_message, sent_by, sent_at`

func scanNotification(row rowScanner) (*types.NotificationLogEntry, error) {
	var n types.NotificationLogEntry
	err := row.Scan(&n.ID, &n.ApplicationID, &n.NotificationType, &n.RecipientEmail, &n.Subject,
		&n.Status, &n.ErrorMessage, &n.SentBy, &n.SentAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// AppendNotification writes a notification log entry
func (db *DB) AppendNotification(ctx context.Context, e *types.NotificationLogEntry) (*types.NotificationLogEntry, error) {
	saved, err := scanNotification(db.pool.QueryRow(ctx,
		`INSERT INTO notification_log (`+notificationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+notificationColumns,
		e.ID, e.ApplicationID, e.NotificationType, e.RecipientEmail, e.Subject,
		e.Status, e.ErrorMessage, e.SentBy, e.SentAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to append notification: %w", err)
	}
	return saved, nil
}

// ListNotifications retrieves the notification log of an application, newest first
func (db *DB) ListNotifications(ctx context.Context, applicationID uuid.UUID) ([]types.NotificationLogEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notification_log WHERE application_id = $1 ORDER BY sent_at DESC`,
		applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var entries []types.NotificationLogEntry
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		entries = append(entries, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return entries, nil
}
