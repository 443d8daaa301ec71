// Package sqlite implements the repo.Repository contract over
// modernc.org/sqlite, the cgo-free driver the retrieval pack's vigil repo
// uses for its own local store (internal/db/db.go). Grounded on that
// file's Open/Ping/WAL/schema sequence, generalized from vigil's
// report/user/session tables to spec.md §6.2's monitor/heartbeat/tls
// schema.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type DB struct {
	SQL *sql.DB
}

func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	db := &DB{SQL: sqlDB}
	if err := db.createSchema(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *DB) Close() error { return db.SQL.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS monitors (
	id INTEGER PRIMARY KEY,
	owner_id INTEGER NOT NULL,
	parent_id INTEGER,
	active INTEGER NOT NULL DEFAULT 1,
	config TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitors_parent ON monitors(parent_id);

CREATE TABLE IF NOT EXISTS heartbeats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	monitor_id INTEGER NOT NULL,
	ts DATETIME NOT NULL,
	status INTEGER NOT NULL,
	msg TEXT NOT NULL DEFAULT '',
	ping_ms INTEGER,
	duration_sec INTEGER NOT NULL DEFAULT 0,
	important INTEGER NOT NULL DEFAULT 0,
	down_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_heartbeats_monitor_ts ON heartbeats(monitor_id, ts);

CREATE TABLE IF NOT EXISTS tls_info (
	monitor_id INTEGER PRIMARY KEY,
	chain TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notification_sent_history (
	kind TEXT NOT NULL,
	monitor_id INTEGER NOT NULL,
	days INTEGER NOT NULL,
	PRIMARY KEY (kind, monitor_id, days)
);

CREATE TABLE IF NOT EXISTS maintenance_windows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	monitor_id INTEGER NOT NULL,
	strategy TEXT NOT NULL,
	starts_at DATETIME,
	ends_at DATETIME,
	weekdays TEXT NOT NULL DEFAULT '',
	daily_start TEXT NOT NULL DEFAULT '',
	daily_end TEXT NOT NULL DEFAULT '',
	cron_expr TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_maintenance_monitor ON maintenance_windows(monitor_id);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	namespace TEXT NOT NULL DEFAULT ''
);
`

func (db *DB) createSchema() error {
	if _, err := db.SQL.Exec(schema); err != nil {
		return fmt.Errorf("create sqlite schema: %w", err)
	}
	return nil
}
