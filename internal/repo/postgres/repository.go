package postgres

import "github.com/NordCoder/vigilant/internal/repo"

// Repository is the production repo.Repository backend. Methods are split
// across files by concern (monitor_repo.go, heartbeat_repo.go, tls_repo.go,
// notification_repo.go, maintenance_repo.go, settings_repo.go), mirroring
// the teacher's one-file-per-aggregate layout (check_repo.go, run_repo.go,
// notification_repo.go, ...).
type Repository struct {
	db *DB
}

func New(db *DB) *Repository { return &Repository{db: db} }

var _ repo.Repository = (*Repository)(nil)
