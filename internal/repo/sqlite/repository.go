package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NordCoder/vigilant/internal/heartbeat"
	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/repo"
	"github.com/NordCoder/vigilant/internal/tlsinfo"
)

// Repository adapts *DB to repo.Repository. All queries use "?"
// placeholders and database/sql, the idiom vigil's internal/db uses
// throughout rather than a query builder or ORM.
type Repository struct {
	db *DB
}

func New(db *DB) *Repository { return &Repository{db: db} }

var _ repo.Repository = (*Repository)(nil)

func (r *Repository) FindMonitor(ctx context.Context, id int64) (*monitor.Monitor, error) {
	row := r.db.SQL.QueryRowContext(ctx, `SELECT id, owner_id, parent_id, active, config FROM monitors WHERE id = ?`, id)
	return scanMonitor(row)
}

func (r *Repository) ListChildren(ctx context.Context, parentID int64) ([]*monitor.Monitor, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT id, owner_id, parent_id, active, config FROM monitors WHERE parent_id = ? ORDER BY id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	var out []*monitor.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) FindParent(ctx context.Context, id int64) (*monitor.Monitor, error) {
	m, err := r.FindMonitor(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.ParentID == nil {
		return nil, nil
	}
	return r.FindMonitor(ctx, *m.ParentID)
}

func (r *Repository) GetAllChildrenIDs(ctx context.Context, id int64) ([]int64, error) {
	children, err := r.ListChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID)
		grandchildren, err := r.GetAllChildrenIDs(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, grandchildren...)
	}
	return ids, nil
}

// ListAllMonitorIDs returns every monitor id, used once at boot to seed
// the Supervisor; mirrors postgres.Repository.ListAllMonitorIDs.
func (r *Repository) ListAllMonitorIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT id FROM monitors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query monitor ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan monitor id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertMonitor writes m's configuration; not part of repo.Repository, used
// by cmd/ bootstrap and tests the same way postgres.Repository exposes it.
func (r *Repository) UpsertMonitor(ctx context.Context, m *monitor.Monitor) error {
	cfg, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal monitor config: %w", err)
	}
	_, err = r.db.SQL.ExecContext(ctx,
		`INSERT INTO monitors (id, owner_id, parent_id, active, config) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET owner_id=excluded.owner_id, parent_id=excluded.parent_id,
		 active=excluded.active, config=excluded.config`,
		m.ID, m.OwnerID, m.ParentID, m.Active, string(cfg))
	if err != nil {
		return fmt.Errorf("upsert monitor: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMonitor(row scanner) (*monitor.Monitor, error) {
	var (
		id, ownerID int64
		parentID    sql.NullInt64
		active      bool
		cfg         string
	)
	if err := row.Scan(&id, &ownerID, &parentID, &active, &cfg); err != nil {
		if err == sql.ErrNoRows {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("scan monitor: %w", err)
	}
	var m monitor.Monitor
	if err := json.Unmarshal([]byte(cfg), &m); err != nil {
		return nil, fmt.Errorf("unmarshal monitor config: %w", err)
	}
	m.ID, m.OwnerID, m.Active = id, ownerID, active
	if parentID.Valid {
		pid := parentID.Int64
		m.ParentID = &pid
	}
	return &m, nil
}

func (r *Repository) FindLatestHeartbeat(ctx context.Context, monitorID int64) (*heartbeat.Heartbeat, error) {
	row := r.db.SQL.QueryRowContext(ctx,
		`SELECT id, monitor_id, ts, status, msg, ping_ms, duration_sec, important, down_count
		 FROM heartbeats WHERE monitor_id = ? ORDER BY ts DESC, id DESC LIMIT 1`, monitorID)
	h, err := scanBeat(row)
	if err == repo.ErrNotFound {
		return nil, nil
	}
	return h, err
}

func (r *Repository) AppendHeartbeat(ctx context.Context, h *heartbeat.Heartbeat) error {
	res, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO heartbeats (monitor_id, ts, status, msg, ping_ms, duration_sec, important, down_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.MonitorID, h.Time, h.Status, h.Msg, h.Ping, h.Duration, h.Important, h.DownCount)
	if err != nil {
		return fmt.Errorf("insert heartbeat: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	h.ID = id
	return nil
}

func (r *Repository) ListHeartbeats(ctx context.Context, monitorID int64, beforeID int64, limit int) ([]*heartbeat.Heartbeat, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT id, monitor_id, ts, status, msg, ping_ms, duration_sec, important, down_count
		 FROM heartbeats WHERE monitor_id = ? AND (? = 0 OR id < ?) ORDER BY id DESC LIMIT ?`,
		monitorID, beforeID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query heartbeats: %w", err)
	}
	defer rows.Close()

	var out []*heartbeat.Heartbeat
	for rows.Next() {
		h, err := scanBeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *Repository) ListHeartbeatsSince(ctx context.Context, monitorID int64, since time.Time) ([]*heartbeat.Heartbeat, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT id, monitor_id, ts, status, msg, ping_ms, duration_sec, important, down_count
		 FROM heartbeats WHERE monitor_id = ? AND ts >= ? ORDER BY ts`, monitorID, since)
	if err != nil {
		return nil, fmt.Errorf("query heartbeats since: %w", err)
	}
	defer rows.Close()

	var out []*heartbeat.Heartbeat
	for rows.Next() {
		h, err := scanBeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanBeat(row scanner) (*heartbeat.Heartbeat, error) {
	var h heartbeat.Heartbeat
	if err := row.Scan(&h.ID, &h.MonitorID, &h.Time, &h.Status, &h.Msg, &h.Ping, &h.Duration, &h.Important, &h.DownCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("scan heartbeat: %w", err)
	}
	return &h, nil
}

func (r *Repository) UpsertTLSInfo(ctx context.Context, info tlsinfo.Info) error {
	chain, err := json.Marshal(info.Chain)
	if err != nil {
		return fmt.Errorf("marshal tls chain: %w", err)
	}
	_, err = r.db.SQL.ExecContext(ctx,
		`INSERT INTO tls_info (monitor_id, chain) VALUES (?, ?)
		 ON CONFLICT(monitor_id) DO UPDATE SET chain = excluded.chain`,
		info.MonitorID, string(chain))
	if err != nil {
		return fmt.Errorf("upsert tls info: %w", err)
	}
	return nil
}

func (r *Repository) FindTLSInfo(ctx context.Context, monitorID int64) (*tlsinfo.Info, error) {
	var chain string
	err := r.db.SQL.QueryRowContext(ctx, `SELECT chain FROM tls_info WHERE monitor_id = ?`, monitorID).Scan(&chain)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("query tls info: %w", err)
	}
	info := tlsinfo.Info{MonitorID: monitorID}
	if err := json.Unmarshal([]byte(chain), &info.Chain); err != nil {
		return nil, fmt.Errorf("unmarshal tls chain: %w", err)
	}
	return &info, nil
}

func (r *Repository) HasNotificationSent(ctx context.Context, kind string, monitorID int64, daysLE int) (bool, error) {
	var exists bool
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM notification_sent_history WHERE kind = ? AND monitor_id = ? AND days <= ?)`,
		kind, monitorID, daysLE).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query notification sent: %w", err)
	}
	return exists, nil
}

func (r *Repository) RecordNotificationSent(ctx context.Context, kind string, monitorID int64, days int) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO notification_sent_history (kind, monitor_id, days) VALUES (?, ?, ?)
		 ON CONFLICT(kind, monitor_id, days) DO NOTHING`, kind, monitorID, days)
	if err != nil {
		return fmt.Errorf("insert notification sent: %w", err)
	}
	return nil
}

func (r *Repository) DeleteNotificationSent(ctx context.Context, kind string, monitorID int64) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`DELETE FROM notification_sent_history WHERE kind = ? AND monitor_id = ?`, kind, monitorID)
	if err != nil {
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

func (r *Repository) ListActiveMaintenances(ctx context.Context, monitorID int64, at time.Time) ([]monitor.MaintenanceWindow, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT id, strategy, starts_at, ends_at, weekdays, daily_start, daily_end, cron_expr, active
		 FROM maintenance_windows WHERE monitor_id = ? AND active = 1`, monitorID)
	if err != nil {
		return nil, fmt.Errorf("query maintenance windows: %w", err)
	}
	defer rows.Close()

	var out []monitor.MaintenanceWindow
	for rows.Next() {
		var w monitor.MaintenanceWindow
		var weekdaysCSV string
		var start, end sql.NullTime
		if err := rows.Scan(&w.ID, &w.Strategy, &start, &end, &weekdaysCSV, &w.DailyStart, &w.DailyEnd, &w.CronExpr, &w.Active); err != nil {
			return nil, fmt.Errorf("scan maintenance window: %w", err)
		}
		w.Start, w.End = start.Time, end.Time
		for _, s := range strings.Split(weekdaysCSV, ",") {
			if s == "" {
				continue
			}
			if d, err := strconv.Atoi(s); err == nil {
				w.Weekdays = append(w.Weekdays, time.Weekday(d))
			}
		}
		if w.Covers(at) {
			out = append(out, w)
		}
	}
	return out, rows.Err()
}

func (r *Repository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.SQL.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query setting: %w", err)
	}
	return value, true, nil
}

func (r *Repository) SetSetting(ctx context.Context, key, value, namespace string) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO settings (key, value, namespace) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, namespace = excluded.namespace`,
		key, value, namespace)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}
