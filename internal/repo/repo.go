// Package repo defines the narrow Repository contract the core consumes
// (spec.md §6.2). Storage itself — the transactional key/value-and-rows
// store — is an out-of-scope external collaborator; this package only types
// the interface and the sentinel errors every concrete adapter shares.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/NordCoder/vigilant/internal/heartbeat"
	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/tlsinfo"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Repository is the thin typed view over Storage consumed by the core.
type Repository interface {
	FindLatestHeartbeat(ctx context.Context, monitorID int64) (*heartbeat.Heartbeat, error)
	AppendHeartbeat(ctx context.Context, h *heartbeat.Heartbeat) error
	ListHeartbeats(ctx context.Context, monitorID int64, beforeID int64, limit int) ([]*heartbeat.Heartbeat, error)
	ListHeartbeatsSince(ctx context.Context, monitorID int64, since time.Time) ([]*heartbeat.Heartbeat, error)

	FindMonitor(ctx context.Context, id int64) (*monitor.Monitor, error)
	ListChildren(ctx context.Context, parentID int64) ([]*monitor.Monitor, error)
	FindParent(ctx context.Context, id int64) (*monitor.Monitor, error)
	GetAllChildrenIDs(ctx context.Context, id int64) ([]int64, error)

	ListActiveMaintenances(ctx context.Context, monitorID int64, at time.Time) ([]monitor.MaintenanceWindow, error)

	UpsertTLSInfo(ctx context.Context, info tlsinfo.Info) error
	FindTLSInfo(ctx context.Context, monitorID int64) (*tlsinfo.Info, error)

	HasNotificationSent(ctx context.Context, kind string, monitorID int64, daysLE int) (bool, error)
	RecordNotificationSent(ctx context.Context, kind string, monitorID int64, days int) error
	DeleteNotificationSent(ctx context.Context, kind string, monitorID int64) error
	ListNotificationsForMonitor(ctx context.Context, monitorID int64) ([]string, error)

	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value, namespace string) error
}

// UptimeSource is the subset of Repository the uptime aggregator needs; kept
// separate so tests can supply an in-memory fake without implementing the
// whole Repository.
type UptimeSource interface {
	ListHeartbeatsSince(ctx context.Context, monitorID int64, since time.Time) ([]*heartbeat.Heartbeat, error)
}

var _ UptimeSource = Repository(nil)
