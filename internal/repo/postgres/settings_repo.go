package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// settings is the process-wide key/value store (the dns driver writes its
// last result here); runtime.EnvSnapshot is built from config, not from
// this table. Grounded on the teacher's
// notification_repo.go single-row upsert idiom.
const (
	qSettingGet = `SELECT value FROM settings WHERE key = $1;`
	qSettingSet = `
INSERT INTO settings (key, value, namespace)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, namespace = EXCLUDED.namespace;
`
)

func (r *Repository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var value string
	err := r.db.Pool.QueryRow(ctx, qSettingGet, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query setting: %w", err)
	}
	return value, true, nil
}

func (r *Repository) SetSetting(ctx context.Context, key, value, namespace string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qSettingSet, key, value, namespace); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}
