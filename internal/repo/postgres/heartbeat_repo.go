package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/vigilant/internal/heartbeat"
)

// heartbeats is an append-only table; grounded on the teacher's
// run_repo.go insert/list-by-id shape (runs -> heartbeats, check_id ->
// monitor_id), since a Heartbeat is structurally the same "one probe
// outcome row per monitor" record the teacher already persists.
const (
	qBeatInsert = `
INSERT INTO heartbeats (monitor_id, ts, status, msg, ping_ms, duration_sec, important, down_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id;
`
	qBeatLatest = `
SELECT id, monitor_id, ts, status, msg, ping_ms, duration_sec, important, down_count
FROM heartbeats
WHERE monitor_id = $1
ORDER BY ts DESC, id DESC
LIMIT 1;
`
	qBeatList = `
SELECT id, monitor_id, ts, status, msg, ping_ms, duration_sec, important, down_count
FROM heartbeats
WHERE monitor_id = $1 AND ($2 = 0 OR id < $2)
ORDER BY id DESC
LIMIT $3;
`
	qBeatListSince = `
SELECT id, monitor_id, ts, status, msg, ping_ms, duration_sec, important, down_count
FROM heartbeats
WHERE monitor_id = $1 AND ts >= $2
ORDER BY ts;
`
)

func scanBeat(row pgx.Row) (*heartbeat.Heartbeat, error) {
	var h heartbeat.Heartbeat
	if err := row.Scan(&h.ID, &h.MonitorID, &h.Time, &h.Status, &h.Msg, &h.Ping, &h.Duration, &h.Important, &h.DownCount); err != nil {
		return nil, fmt.Errorf("scan heartbeat: %w", err)
	}
	return &h, nil
}

func (r *Repository) AppendHeartbeat(ctx context.Context, h *heartbeat.Heartbeat) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return r.db.Pool.QueryRow(ctx, qBeatInsert,
		h.MonitorID, h.Time, h.Status, h.Msg, h.Ping, h.Duration, h.Important, h.DownCount,
	).Scan(&h.ID)
}

func (r *Repository) FindLatestHeartbeat(ctx context.Context, monitorID int64) (*heartbeat.Heartbeat, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	h, err := scanBeat(r.db.Pool.QueryRow(ctx, qBeatLatest, monitorID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return h, nil
}

func (r *Repository) ListHeartbeats(ctx context.Context, monitorID int64, beforeID int64, limit int) ([]*heartbeat.Heartbeat, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qBeatList, monitorID, beforeID, limit)
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
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qBeatListSince, monitorID, since)
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
