package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/vigilant/internal/monitor"
)

// maintenance_windows rows mirror monitor.MaintenanceWindow field for
// field; grounded on the teacher's run_repo.go list-by-parent shape.
const qMaintActive = `
SELECT id, strategy, starts_at, ends_at, weekdays, daily_start, daily_end, cron_expr, active
FROM maintenance_windows
WHERE monitor_id = $1 AND active = TRUE;
`

func (r *Repository) ListActiveMaintenances(ctx context.Context, monitorID int64, at time.Time) ([]monitor.MaintenanceWindow, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qMaintActive, monitorID)
	if err != nil {
		return nil, fmt.Errorf("query maintenance windows: %w", err)
	}
	defer rows.Close()

	var out []monitor.MaintenanceWindow
	for rows.Next() {
		var w monitor.MaintenanceWindow
		var weekdayInts []int
		if err := rows.Scan(&w.ID, &w.Strategy, &w.Start, &w.End, &weekdayInts, &w.DailyStart, &w.DailyEnd, &w.CronExpr, &w.Active); err != nil {
			return nil, fmt.Errorf("scan maintenance window: %w", err)
		}
		for _, d := range weekdayInts {
			w.Weekdays = append(w.Weekdays, time.Weekday(d))
		}
		if w.Covers(at) {
			out = append(out, w)
		}
	}
	return out, rows.Err()
}
