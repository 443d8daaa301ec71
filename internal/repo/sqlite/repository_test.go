package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/vigilant/internal/heartbeat"
	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/repo"
	"github.com/NordCoder/vigilant/internal/tlsinfo"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "vigilant.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestMonitorUpsertAndFind(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	parent := int64(1)
	m := &monitor.Monitor{ID: 2, OwnerID: 10, ParentID: &parent, Active: true, Name: "child", Type: monitor.TypeHTTP}
	require.NoError(t, r.UpsertMonitor(ctx, m))

	got, err := r.FindMonitor(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "child", got.Name)
	assert.Equal(t, int64(10), got.OwnerID)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, int64(1), *got.ParentID)
}

func TestFindMonitorNotFound(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.FindMonitor(context.Background(), 999)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestListChildrenAndDescendants(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	root := int64(1)
	require.NoError(t, r.UpsertMonitor(ctx, &monitor.Monitor{ID: 1, Active: true, Type: monitor.TypeGroup}))
	require.NoError(t, r.UpsertMonitor(ctx, &monitor.Monitor{ID: 2, ParentID: &root, Active: true, Type: monitor.TypeHTTP}))
	mid := int64(2)
	require.NoError(t, r.UpsertMonitor(ctx, &monitor.Monitor{ID: 3, ParentID: &mid, Active: true, Type: monitor.TypeHTTP}))

	children, err := r.ListChildren(ctx, 1)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, int64(2), children[0].ID)

	ids, err := r.GetAllChildrenIDs(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 3}, ids)
}

func TestListAllMonitorIDs(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.UpsertMonitor(ctx, &monitor.Monitor{ID: 5, Active: true}))
	require.NoError(t, r.UpsertMonitor(ctx, &monitor.Monitor{ID: 6, Active: true}))

	ids, err := r.ListAllMonitorIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{5, 6}, ids)
}

func TestHeartbeatAppendAndFindLatest(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	none, err := r.FindLatestHeartbeat(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, none)

	beat := &heartbeat.Heartbeat{MonitorID: 1, Time: time.Now().UTC(), Status: int(monitor.StatusUp), Msg: "ok"}
	require.NoError(t, r.AppendHeartbeat(ctx, beat))
	assert.NotZero(t, beat.ID)

	latest, err := r.FindLatestHeartbeat(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "ok", latest.Msg)
}

func TestTLSInfoUpsertAndNotFound(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.FindTLSInfo(ctx, 42)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	require.NoError(t, r.UpsertTLSInfo(ctx, tlsinfo.Info{MonitorID: 42, Chain: []tlsinfo.CertInfo{{SubjectCN: "test.example.com"}}}))

	got, err := r.FindTLSInfo(ctx, 42)
	require.NoError(t, err)
	require.Len(t, got.Chain, 1)
	assert.Equal(t, "test.example.com", got.Chain[0].SubjectCN)
}

func TestNotificationSentHistory(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	sent, err := r.HasNotificationSent(ctx, "tls-expiry", 1, 7)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, r.RecordNotificationSent(ctx, "tls-expiry", 1, 7))
	sent, err = r.HasNotificationSent(ctx, "tls-expiry", 1, 7)
	require.NoError(t, err)
	assert.True(t, sent)

	require.NoError(t, r.DeleteNotificationSent(ctx, "tls-expiry", 1))
	sent, err = r.HasNotificationSent(ctx, "tls-expiry", 1, 7)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestSettings(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, ok, err := r.GetSetting(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.SetSetting(ctx, "theme", "dark", "ui"))
	v, ok, err := r.GetSetting(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
}
