package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/vigilant/internal/repo"
	"github.com/NordCoder/vigilant/internal/tlsinfo"
)

// tls_info keeps one row per monitor, the chain stored as JSONB since its
// shape (a linked leaf-to-root []CertInfo) has no natural normalized
// columns. Grounded on the teacher's notification_repo.go payload-column
// idiom (a JSON blob alongside a handful of indexed columns).
const (
	qTLSUpsert = `
INSERT INTO tls_info (monitor_id, chain)
VALUES ($1, $2)
ON CONFLICT (monitor_id) DO UPDATE SET chain = EXCLUDED.chain;
`
	qTLSGet = `SELECT chain FROM tls_info WHERE monitor_id = $1;`
)

func (r *Repository) UpsertTLSInfo(ctx context.Context, info tlsinfo.Info) error {
	chain, err := json.Marshal(info.Chain)
	if err != nil {
		return fmt.Errorf("marshal tls chain: %w", err)
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	if _, err := r.db.Pool.Exec(ctx, qTLSUpsert, info.MonitorID, chain); err != nil {
		return fmt.Errorf("upsert tls info: %w", err)
	}
	return nil
}

func (r *Repository) FindTLSInfo(ctx context.Context, monitorID int64) (*tlsinfo.Info, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var chain []byte
	err := r.db.Pool.QueryRow(ctx, qTLSGet, monitorID).Scan(&chain)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("query tls info: %w", err)
	}

	info := tlsinfo.Info{MonitorID: monitorID}
	if err := json.Unmarshal(chain, &info.Chain); err != nil {
		return nil, fmt.Errorf("unmarshal tls chain: %w", err)
	}
	return &info, nil
}
