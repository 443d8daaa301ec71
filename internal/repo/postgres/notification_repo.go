package postgres

import (
	"context"
	"fmt"
)

// notification_sent_history dedups repeat notifications (e.g. TLS expiry
// at the same threshold), grounded on the teacher's notification_repo.go
// insert/query shape generalized from "one row per send" to the
// kind+monitor+days composite key spec.md §4.7's dedup logic needs.
const (
	qNotifSentHas = `
SELECT EXISTS(
	SELECT 1 FROM notification_sent_history
	WHERE kind = $1 AND monitor_id = $2 AND days <= $3
);
`
	qNotifSentInsert = `
INSERT INTO notification_sent_history (kind, monitor_id, days)
VALUES ($1, $2, $3)
ON CONFLICT (kind, monitor_id, days) DO NOTHING;
`
	qNotifSentDelete = `
DELETE FROM notification_sent_history WHERE kind = $1 AND monitor_id = $2;
`
)

func (r *Repository) HasNotificationSent(ctx context.Context, kind string, monitorID int64, daysLE int) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, qNotifSentHas, kind, monitorID, daysLE).Scan(&exists); err != nil {
		return false, fmt.Errorf("query notification sent: %w", err)
	}
	return exists, nil
}

func (r *Repository) RecordNotificationSent(ctx context.Context, kind string, monitorID int64, days int) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qNotifSentInsert, kind, monitorID, days); err != nil {
		return fmt.Errorf("insert notification sent: %w", err)
	}
	return nil
}

func (r *Repository) DeleteNotificationSent(ctx context.Context, kind string, monitorID int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qNotifSentDelete, kind, monitorID); err != nil {
		return fmt.Errorf("delete notification sent: %w", err)
	}
	return nil
}

func (r *Repository) ListNotificationsForMonitor(ctx context.Context, monitorID int64) ([]string, error) {
	m, err := r.FindMonitor(ctx, monitorID)
	if err != nil {
		return nil, err
	}
	return m.NotificationProviders, nil
}
