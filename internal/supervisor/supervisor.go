// Package supervisor owns the set of running MonitorRuntimes (spec.md
// §4.1): Start/Stop/Reload against the map, and the OnHeartbeat/OnStats
// subscription surface for in-process consumers. Grounded
// on the teacher's Runner shape in internal/services/ping-worker/runner.go
// — a single struct holding its dependencies plus a metrics set, with one
// handler method per unit of work — generalized from one stateless handler
// per Kafka message to one long-lived MonitorRuntime per Monitor.
package supervisor

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/NordCoder/vigilant/internal/livebus"
	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/repo"
	"github.com/NordCoder/vigilant/internal/runtime"
)

// Supervisor owns every running MonitorRuntime and the shared EnvSnapshot
// they all read.
type Supervisor struct {
	deps *runtime.Deps
	log  *zap.Logger

	mu      sync.Mutex
	running map[int64]*runtime.MonitorRuntime
}

// New creates a Supervisor bound to deps. deps.Env should already hold a
// real snapshot; call SetEnv to swap it after a settings change.
func New(deps *runtime.Deps) *Supervisor {
	return &Supervisor{
		deps:    deps,
		log:     deps.Log,
		running: make(map[int64]*runtime.MonitorRuntime),
	}
}

// SetEnv atomically swaps the settings snapshot every tick reads, per
// spec.md §9's "Global mutable settings" design note. It does not touch
// already-scheduled timers; the new snapshot takes effect on each
// monitor's next tick.
func (s *Supervisor) SetEnv(env runtime.EnvSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps.Env = env
}

// StartAll loads every active monitor from the Repository and starts a
// MonitorRuntime for each, the boot sequence for spec.md §4.1.
func (s *Supervisor) StartAll(ctx context.Context, r repo.Repository, ids []int64) error {
	for _, id := range ids {
		m, err := r.FindMonitor(ctx, id)
		if err != nil {
			s.log.Warn("load monitor at startup", zap.Int64("monitor_id", id), zap.Error(err))
			continue
		}
		if !m.Active {
			continue
		}
		s.Start(ctx, m)
	}
	return nil
}

// Start begins ticking m. Starting an already-running monitor is a no-op;
// callers that changed m's configuration should call Reload instead.
func (s *Supervisor) Start(ctx context.Context, m *monitor.Monitor) {
	s.mu.Lock()
	if _, ok := s.running[m.ID]; ok {
		s.mu.Unlock()
		return
	}
	rt := runtime.New(m, s.deps)
	s.running[m.ID] = rt
	s.mu.Unlock()

	s.log.Info("monitor started", zap.Int64("monitor_id", m.ID), zap.String("name", m.Name), zap.String("type", string(m.Type)))
	rt.Start(ctx)
}

// Stop halts monitorID's runtime and removes it from the running set.
func (s *Supervisor) Stop(monitorID int64) {
	s.mu.Lock()
	rt, ok := s.running[monitorID]
	if ok {
		delete(s.running, monitorID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	rt.Stop()
	s.log.Info("monitor stopped", zap.Int64("monitor_id", monitorID))
}

// Reload restarts monitorID's runtime so a configuration edit (interval,
// type, retries, ...) takes effect without waiting for the current
// runtime's closure over the old *monitor.Monitor to be GC'd.
func (s *Supervisor) Reload(ctx context.Context, m *monitor.Monitor) {
	s.Stop(m.ID)
	if m.Active {
		s.Start(ctx, m)
	}
}

// StopAll halts every running monitor, used on graceful shutdown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.running))
	for id := range s.running {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.Stop(id)
	}
}

// IsRunning reports whether monitorID currently has a live runtime.
func (s *Supervisor) IsRunning(monitorID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[monitorID]
	return ok
}

// RunningCount reports how many monitors are currently ticking; cmd/vigilant
// logs it once after startup.
func (s *Supervisor) RunningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// OnHeartbeat registers a callback invoked on every published heartbeat
// across every monitor, delegating to the shared LiveBus.
func (s *Supervisor) OnHeartbeat(cb livebus.HeartbeatCallback) {
	if s.deps.LiveBus != nil {
		s.deps.LiveBus.OnHeartbeat(cb)
	}
}

// OnStats registers a callback invoked on every published stats frame.
func (s *Supervisor) OnStats(cb livebus.StatsCallback) {
	if s.deps.LiveBus != nil {
		s.deps.LiveBus.OnStats(cb)
	}
}

