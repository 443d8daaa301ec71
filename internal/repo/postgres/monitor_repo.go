package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/repo"
)

// monitors stores identity/ownership columns the core queries by
// (id, owner_id, parent_id, active) plus the full protocol-specific
// configuration as a JSONB blob. Grounded on the teacher's check_repo.go
// scan-into-struct idiom; the JSONB column follows the config-blob pattern
// surveyed in monocle-dev-monocle's monitor model, since monitor.Monitor
// carries far more protocol-specific fields than a handful of SQL columns
// can reasonably enumerate.
const (
	qMonitorGet = `
SELECT id, owner_id, parent_id, active, config
FROM monitors
WHERE id = $1;
`
	qMonitorChildren = `
SELECT id, owner_id, parent_id, active, config
FROM monitors
WHERE parent_id = $1
ORDER BY id;
`
	qMonitorParent = `
SELECT p.id, p.owner_id, p.parent_id, p.active, p.config
FROM monitors p
JOIN monitors c ON c.parent_id = p.id
WHERE c.id = $1;
`
	qMonitorDescendantIDs = `
WITH RECURSIVE tree AS (
	SELECT id FROM monitors WHERE parent_id = $1
	UNION ALL
	SELECT m.id FROM monitors m JOIN tree t ON m.parent_id = t.id
)
SELECT id FROM tree;
`
	qMonitorUpsert = `
INSERT INTO monitors (id, owner_id, parent_id, active, config)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET owner_id = EXCLUDED.owner_id, parent_id = EXCLUDED.parent_id,
    active = EXCLUDED.active, config = EXCLUDED.config;
`
)

func scanMonitor(row pgx.Row) (*monitor.Monitor, error) {
	var (
		id, ownerID int64
		parentID    *int64
		active      bool
		cfg         []byte
	)
	if err := row.Scan(&id, &ownerID, &parentID, &active, &cfg); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("scan monitor: %w", err)
	}
	var m monitor.Monitor
	if err := json.Unmarshal(cfg, &m); err != nil {
		return nil, fmt.Errorf("unmarshal monitor config: %w", err)
	}
	m.ID, m.OwnerID, m.ParentID, m.Active = id, ownerID, parentID, active
	return &m, nil
}

func (r *Repository) FindMonitor(ctx context.Context, id int64) (*monitor.Monitor, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	return scanMonitor(r.db.Pool.QueryRow(ctx, qMonitorGet, id))
}

func (r *Repository) ListChildren(ctx context.Context, parentID int64) ([]*monitor.Monitor, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qMonitorChildren, parentID)
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
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	m, err := scanMonitor(r.db.Pool.QueryRow(ctx, qMonitorParent, id))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return m, err
}

func (r *Repository) GetAllChildrenIDs(ctx context.Context, id int64) ([]int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qMonitorDescendantIDs, id)
	if err != nil {
		return nil, fmt.Errorf("query descendant ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var cid int64
		if err := rows.Scan(&cid); err != nil {
			return nil, fmt.Errorf("scan descendant id: %w", err)
		}
		ids = append(ids, cid)
	}
	return ids, rows.Err()
}

// ListAllMonitorIDs returns every monitor id, used once at boot to seed
// the Supervisor (spec.md §4.1); not part of repo.Repository since the
// core never needs to enumerate monitors itself.
func (r *Repository) ListAllMonitorIDs(ctx context.Context) ([]int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, `SELECT id FROM monitors ORDER BY id;`)
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

// UpsertMonitor writes m's configuration, used by the settings/admin
// surface when a monitor is created or edited. Not part of repo.Repository
// (the core only reads monitors); exported for cmd/ bootstrap and tests.
func (r *Repository) UpsertMonitor(ctx context.Context, m *monitor.Monitor) error {
	cfg, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal monitor config: %w", err)
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	if _, err := r.db.Pool.Exec(ctx, qMonitorUpsert, m.ID, m.OwnerID, m.ParentID, m.Active, cfg); err != nil {
		return fmt.Errorf("upsert monitor: %w", err)
	}
	return nil
}
