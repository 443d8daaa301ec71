// Package memory is an in-process Repository used by tests and by the
// Monitor Runtime's own unit tests; it is not a production backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NordCoder/vigilant/internal/heartbeat"
	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/repo"
	"github.com/NordCoder/vigilant/internal/tlsinfo"
)

type sentKey struct {
	kind      string
	monitorID int64
	days      int
}

var _ repo.Repository = (*Repo)(nil)

// Repo is a mutex-guarded in-memory Repository.
type Repo struct {
	mu sync.Mutex

	monitors map[int64]*monitor.Monitor
	beats    map[int64][]*heartbeat.Heartbeat // monitorID -> time-ordered beats
	tls      map[int64]tlsinfo.Info
	sent     map[sentKey]struct{}
	settings map[string]settingVal
	maint    map[int64][]monitor.MaintenanceWindow

	nextBeatID int64
}

type settingVal struct {
	value string
	ns    string
}

func New() *Repo {
	return &Repo{
		monitors: make(map[int64]*monitor.Monitor),
		beats:    make(map[int64][]*heartbeat.Heartbeat),
		tls:      make(map[int64]tlsinfo.Info),
		sent:     make(map[sentKey]struct{}),
		settings: make(map[string]settingVal),
		maint:    make(map[int64][]monitor.MaintenanceWindow),
	}
}

func (r *Repo) PutMonitor(m *monitor.Monitor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monitors[m.ID] = m
}

func (r *Repo) PutMaintenance(monitorID int64, w monitor.MaintenanceWindow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maint[monitorID] = append(r.maint[monitorID], w)
}

func (r *Repo) FindMonitor(_ context.Context, id int64) (*monitor.Monitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.monitors[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return m, nil
}

func (r *Repo) ListChildren(_ context.Context, parentID int64) ([]*monitor.Monitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*monitor.Monitor
	for _, m := range r.monitors {
		if m.ParentID != nil && *m.ParentID == parentID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repo) FindParent(ctx context.Context, id int64) (*monitor.Monitor, error) {
	m, err := r.FindMonitor(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.ParentID == nil {
		return nil, repo.ErrNotFound
	}
	return r.FindMonitor(ctx, *m.ParentID)
}

func (r *Repo) GetAllChildrenIDs(ctx context.Context, id int64) ([]int64, error) {
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

func (r *Repo) ListActiveMaintenances(_ context.Context, monitorID int64, at time.Time) ([]monitor.MaintenanceWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []monitor.MaintenanceWindow
	for _, w := range r.maint[monitorID] {
		if w.Covers(at) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *Repo) FindLatestHeartbeat(_ context.Context, monitorID int64) (*heartbeat.Heartbeat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	beats := r.beats[monitorID]
	if len(beats) == 0 {
		return nil, nil
	}
	return beats[len(beats)-1], nil
}

func (r *Repo) AppendHeartbeat(_ context.Context, h *heartbeat.Heartbeat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextBeatID++
	h.ID = r.nextBeatID
	r.beats[h.MonitorID] = append(r.beats[h.MonitorID], h)
	return nil
}

func (r *Repo) ListHeartbeats(_ context.Context, monitorID int64, beforeID int64, limit int) ([]*heartbeat.Heartbeat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.beats[monitorID]
	out := make([]*heartbeat.Heartbeat, 0, limit)
	for i := len(all) - 1; i >= 0; i-- {
		if beforeID > 0 && all[i].ID >= beforeID {
			continue
		}
		out = append(out, all[i])
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *Repo) ListHeartbeatsSince(_ context.Context, monitorID int64, since time.Time) ([]*heartbeat.Heartbeat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*heartbeat.Heartbeat
	for _, b := range r.beats[monitorID] {
		if b.Time.After(since) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *Repo) UpsertTLSInfo(_ context.Context, info tlsinfo.Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tls[info.MonitorID] = info
	return nil
}

func (r *Repo) FindTLSInfo(_ context.Context, monitorID int64) (*tlsinfo.Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.tls[monitorID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &info, nil
}

func (r *Repo) HasNotificationSent(_ context.Context, kind string, monitorID int64, daysLE int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.sent {
		if k.kind == kind && k.monitorID == monitorID && k.days <= daysLE {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repo) RecordNotificationSent(_ context.Context, kind string, monitorID int64, days int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[sentKey{kind, monitorID, days}] = struct{}{}
	return nil
}

func (r *Repo) DeleteNotificationSent(_ context.Context, kind string, monitorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.sent {
		if k.kind == kind && k.monitorID == monitorID {
			delete(r.sent, k)
		}
	}
	return nil
}

func (r *Repo) ListNotificationsForMonitor(_ context.Context, monitorID int64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.monitors[monitorID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return m.NotificationProviders, nil
}

func (r *Repo) GetSetting(_ context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.settings[key]
	if !ok {
		return "", false, nil
	}
	return v.value, true, nil
}

func (r *Repo) SetSetting(_ context.Context, key, value, ns string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[key] = settingVal{value: value, ns: ns}
	return nil
}
