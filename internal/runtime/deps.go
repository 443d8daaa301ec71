// Package runtime implements the Monitor Runtime beat loop (spec.md §4.2):
// the per-monitor timer, its retry/resend state machine, cancellable probe
// execution, and the outer safety shell that catches a crashing tick and
// reschedules it. Grounded on the teacher's consumer-loop shape in
// internal/services/ping-worker/runner.go (one handler per unit of work,
// metrics/log on every branch, errors never propagated past the loop
// boundary) generalized from a Kafka-driven pull loop to a per-monitor
// self-rescheduling timer, per spec.md §9's "single-shot timer, no
// thread-per-monitor" design note.
package runtime

import (
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/vigilant/internal/livebus"
	"github.com/NordCoder/vigilant/internal/metrics"
	"github.com/NordCoder/vigilant/internal/notify"
	"github.com/NordCoder/vigilant/internal/precmd"
	"github.com/NordCoder/vigilant/internal/probe"
	"github.com/NordCoder/vigilant/internal/repo"
	"github.com/NordCoder/vigilant/internal/tlstrack"
	"github.com/NordCoder/vigilant/internal/uptime"
)

// Deps bundles every collaborator a MonitorRuntime tick needs. One Deps is
// shared by every running monitor; only the per-monitor state in
// MonitorRuntime itself is exclusive (spec.md §3's "Ownership & lifecycle").
type Deps struct {
	Repo      repo.Repository
	Registry  *probe.Registry
	Notifier  notify.Notifier
	PreCmd    *precmd.Runner
	TLSTrack  *tlstrack.Tracker
	Metrics   metrics.Sink
	LiveBus   *livebus.Bus
	UptimeAgg *uptime.Aggregator
	Env       EnvSnapshot
	Log       *zap.Logger
}

// EnvSnapshot is the immutable settings view handed to every tick
// (spec.md §9's "Global mutable settings" design note / SPEC_FULL.md
// §2.2). cmd/vigilant builds it once from config at startup;
// Supervisor.SetEnv can replace it, but nothing in this module watches the
// settings store or calls SetEnv on a settings change. A running tick never
// reads the settings store directly.
type EnvSnapshot struct {
	MinIntervalSeconds  int
	MaxIntervalSeconds  int
	DemoMode            bool
	TLSExpiryNotifyDays []int
	Timezone            *time.Location
	UserAgent           string
	Version             string
}

// DefaultEnv is used when no settings store has published a snapshot yet.
func DefaultEnv() EnvSnapshot {
	return EnvSnapshot{
		MinIntervalSeconds:  20,
		MaxIntervalSeconds:  86400,
		DemoMode:            false,
		TLSExpiryNotifyDays: []int{7, 14, 21},
		Timezone:            time.UTC,
		UserAgent:           "Uptime-Kuma/1.23.0",
		Version:             "1.23.0",
	}
}

// ClampInterval enforces spec.md §3's MIN_INTERVAL <= interval <=
// MAX_INTERVAL invariant and §4.2 step 1's demo-mode floor.
func (e EnvSnapshot) ClampInterval(intervalSeconds int) int {
	beat := intervalSeconds
	if beat < 1 {
		beat = 1
	}
	if e.DemoMode && beat < 20 {
		beat = 20
	}
	if e.MinIntervalSeconds > 0 && beat < e.MinIntervalSeconds {
		beat = e.MinIntervalSeconds
	}
	if e.MaxIntervalSeconds > 0 && beat > e.MaxIntervalSeconds {
		beat = e.MaxIntervalSeconds
	}
	return beat
}
