package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/vigilant/internal/classify"
	"github.com/NordCoder/vigilant/internal/heartbeat"
	"github.com/NordCoder/vigilant/internal/livebus"
	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
)

const pushBufferTime = 1 * time.Second

// MonitorRuntime owns one Monitor's timer, previousBeat, retries counter,
// and cancellation handle for its lifetime, per spec.md §3's "Ownership &
// lifecycle" paragraph. It is never accessed by two goroutines running a
// tick concurrently — Start/Stop only touch the scheduling fields under mu.
type MonitorRuntime struct {
	mon  *monitor.Monitor
	deps *Deps

	mu          sync.Mutex
	isStop      bool
	timer       *time.Timer
	cancelProbe context.CancelFunc

	previousBeat   *heartbeat.Heartbeat
	retries        int
	pushLastBeatID int64
	pushDeadline   time.Time
}

// New creates a MonitorRuntime for mon. It does not start ticking; call
// Start.
func New(mon *monitor.Monitor, deps *Deps) *MonitorRuntime {
	return &MonitorRuntime{mon: mon, deps: deps}
}

// Start schedules the first tick. For push monitors the first tick is
// deferred by interval seconds (spec.md §4.2's "First-beat delay");
// every other type ticks immediately.
func (r *MonitorRuntime) Start(ctx context.Context) {
	r.mu.Lock()
	r.isStop = false
	r.mu.Unlock()

	delay := time.Duration(0)
	if r.mon.Type == monitor.TypePush {
		delay = time.Duration(r.deps.Env.ClampInterval(r.mon.Interval)) * time.Second
		r.pushDeadline = time.Now().Add(delay)
	}
	r.schedule(ctx, delay)
}

// Stop cancels the pending tick and any in-flight probe. The runtime is
// disposed once the current probe's scoped resources release.
func (r *MonitorRuntime) Stop() {
	r.mu.Lock()
	r.isStop = true
	if r.timer != nil {
		r.timer.Stop()
	}
	cancel := r.cancelProbe
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *MonitorRuntime) schedule(ctx context.Context, delay time.Duration) {
	r.mu.Lock()
	if r.isStop {
		r.mu.Unlock()
		return
	}
	r.timer = time.AfterFunc(delay, func() { r.runTickSafely(ctx) })
	r.mu.Unlock()
}

// runTickSafely is the outer safety shell from spec.md §4.2's "Safety"
// paragraph: any uncaught panic or error inside a tick is caught here,
// logged, and the runtime reschedules itself after interval seconds rather
// than stopping or propagating.
func (r *MonitorRuntime) runTickSafely(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.deps.Log.Error("panic in monitor tick",
				zap.Int64("monitor_id", r.mon.ID), zap.Any("recover", rec))
			r.rescheduleAfterFailure(ctx)
		}
	}()

	delay, err := r.tick(ctx)
	if err != nil {
		r.deps.Log.Error("tick failed, rescheduling after interval",
			zap.Int64("monitor_id", r.mon.ID), zap.Error(err))
		r.rescheduleAfterFailure(ctx)
		return
	}

	r.mu.Lock()
	stopped := r.isStop
	r.mu.Unlock()
	if !stopped {
		r.schedule(ctx, delay)
	}
}

func (r *MonitorRuntime) rescheduleAfterFailure(ctx context.Context) {
	r.mu.Lock()
	stopped := r.isStop
	r.mu.Unlock()
	if stopped {
		return
	}
	interval := time.Duration(r.deps.Env.ClampInterval(r.mon.Interval)) * time.Second
	r.schedule(ctx, interval)
}

// tick runs exactly one beat: spec.md §4.2 steps 1-11. It returns the
// delay before the next tick should fire.
func (r *MonitorRuntime) tick(ctx context.Context) (time.Duration, error) {
	tr := otel.Tracer("vigilant/runtime")
	ctx, span := tr.Start(ctx, "monitor.tick", trace.WithAttributes(
		attribute.Int64("monitor_id", r.mon.ID),
		attribute.String("monitor_type", string(r.mon.Type)),
	))
	defer span.End()

	m := r.mon
	env := r.deps.Env

	// Step 1: normalize.
	beatInterval := env.ClampInterval(m.Interval)
	timeoutSeconds := m.Timeout
	if timeoutSeconds <= 0 {
		timeoutSeconds = int(float64(beatInterval) * 0.8)
		if timeoutSeconds <= 0 {
			timeoutSeconds = 1
		}
	}

	// Step 2: load previousBeat. Push monitors re-read on every tick since
	// an external agent, not this runtime, may have appended one.
	if r.previousBeat == nil || m.Type == monitor.TypePush {
		latest, err := r.deps.Repo.FindLatestHeartbeat(ctx, m.ID)
		if err != nil {
			return 0, monitorerr.NewTransientSupervisorError("load previous heartbeat", err)
		}
		r.previousBeat = latest
	}
	isFirst := r.previousBeat == nil

	if m.Type == monitor.TypePush {
		return r.tickPush(ctx, isFirst, beatInterval)
	}

	// Step 3: compose beat skeleton. upsideDown monitors flip the initial
	// DOWN->UP, since for them an unreachable target is the expected,
	// healthy outcome.
	now := time.Now().UTC()
	var duration int64
	downCount := 0
	if !isFirst {
		duration = int64(now.Sub(r.previousBeat.Time).Seconds())
		if duration < 0 {
			duration = 0
		}
		downCount = r.previousBeat.DownCount
	}
	initialStatus := monitor.StatusDown
	if m.UpsideDown {
		initialStatus = monitor.StatusUp
	}
	beat := &heartbeat.Heartbeat{
		MonitorID: m.ID,
		Time:      now,
		Status:    int(initialStatus),
		DownCount: downCount,
		Duration:  duration,
	}

	// Step 4: maintenance check, inherited from ancestors.
	underMaintenance, err := r.underMaintenance(ctx, m.ID, now)
	if err != nil {
		return 0, monitorerr.NewTransientSupervisorError("check maintenance windows", err)
	}

	if underMaintenance {
		beat.Status = int(monitor.StatusMaintenance)
		beat.Msg = "Monitor under maintenance"
		r.retries = 0
		return r.finishTick(ctx, beat, isFirst, beatInterval)
	}

	// Step 5: dispatch, bound to (timeout+10)s.
	probeCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds+10)*time.Second)
	r.mu.Lock()
	r.cancelProbe = cancel
	r.mu.Unlock()

	result, probeErr := r.deps.Registry.Dispatch(probeCtx, m, probe.Env{UserAgent: env.UserAgent, Repo: r.deps.Repo})

	r.mu.Lock()
	r.cancelProbe = nil
	r.mu.Unlock()
	cancel()

	probeFailed := false
	if probeErr != nil {
		probeFailed = true
		if monitorerr.Cancelled(probeCtx.Err()) {
			beat.Msg = fmt.Sprintf("timeout by AbortSignal (%ds)", timeoutSeconds)
		} else {
			beat.Msg = probeErr.Error()
		}
	} else {
		beat.Status = int(result.Status)
		beat.Msg = result.Msg
		beat.Ping = result.Ping

		if result.TLSInfo != nil && r.deps.TLSTrack != nil {
			if err := r.deps.TLSTrack.Handle(ctx, m, *result.TLSInfo, env.TLSExpiryNotifyDays); err != nil {
				r.deps.Log.Warn("tls tracking failed", zap.Int64("monitor_id", m.ID), zap.Error(err))
			}
		}

		// Step 6: post-probe upside-down inversion. MAINTENANCE never
		// reaches here; only a clean probe outcome flips.
		if m.UpsideDown && monitor.Status(beat.Status) == monitor.StatusUp {
			beat.Status = int(monitor.StatusDown)
			beat.Msg += " (inverted by upsideDown)"
			probeFailed = true
		}
	}

	// Step 7: retry accounting. A probe error on an upsideDown monitor
	// leaves the skeleton's inverted UP status in place (the target being
	// unreachable is the success condition) and resets retries immediately,
	// rather than decaying through PENDING/DOWN like an ordinary failure.
	if probeFailed {
		if m.UpsideDown && monitor.Status(beat.Status) == monitor.StatusUp {
			r.retries = 0
		} else if r.retries < m.MaxRetries {
			r.retries++
			beat.Status = int(monitor.StatusPending)
		} else {
			beat.Status = int(monitor.StatusDown)
		}
	} else {
		r.retries = 0
	}

	return r.finishTick(ctx, beat, isFirst, beatInterval)
}

func (r *MonitorRuntime) underMaintenance(ctx context.Context, monitorID int64, at time.Time) (bool, error) {
	windows, err := r.deps.Repo.ListActiveMaintenances(ctx, monitorID, at)
	if err != nil {
		return false, err
	}
	if len(windows) > 0 {
		return true, nil
	}
	parent, err := r.deps.Repo.FindParent(ctx, monitorID)
	if err != nil || parent == nil {
		return false, nil // no parent is the common, non-error case.
	}
	return r.underMaintenance(ctx, parent.ID, at)
}

// tickPush implements spec.md §4.2's push special case: no probe dispatch,
// just a deadline check against the most recently received external beat.
func (r *MonitorRuntime) tickPush(ctx context.Context, isFirst bool, beatInterval int) (time.Duration, error) {
	m := r.mon
	now := time.Now().UTC()
	if r.pushDeadline.IsZero() {
		r.pushDeadline = now.Add(time.Duration(beatInterval)*time.Second + pushBufferTime)
	}

	latest := r.previousBeat
	arrived := latest != nil && latest.ID != r.pushLastBeatID && !latest.Time.After(now)

	if arrived {
		r.pushLastBeatID = latest.ID
		r.retries = 0
		remaining := r.pushDeadline.Sub(now)
		r.pushDeadline = now.Add(time.Duration(beatInterval)*time.Second + pushBufferTime)
		if remaining < 0 {
			remaining = 0
		}
		// The external agent's own POST already persisted this heartbeat;
		// only the importance/publish side effects run for it here.
		r.classifyAndNotify(ctx, latest, isFirst)
		r.publish(ctx, latest)
		r.previousBeat = latest
		return remaining, nil
	}

	if now.Before(r.pushDeadline) {
		return r.pushDeadline.Sub(now), nil
	}

	beat := &heartbeat.Heartbeat{
		MonitorID: m.ID,
		Time:      now,
		Msg:       "No heartbeat in the time window",
	}
	if latest != nil {
		beat.DownCount = latest.DownCount
		beat.Duration = int64(now.Sub(latest.Time).Seconds())
	}
	if r.retries < m.MaxRetries {
		r.retries++
		beat.Status = int(monitor.StatusPending)
	} else {
		beat.Status = int(monitor.StatusDown)
	}
	r.pushDeadline = now.Add(time.Duration(beatInterval)*time.Second + pushBufferTime)
	return r.finishTick(ctx, beat, isFirst, beatInterval)
}

// finishTick runs spec.md §4.2 steps 8-11: importance classification,
// publish, persist, and computing the next delay.
func (r *MonitorRuntime) finishTick(ctx context.Context, beat *heartbeat.Heartbeat, isFirst bool, beatInterval int) (time.Duration, error) {
	m := r.mon

	r.classifyAndNotify(ctx, beat, isFirst)
	r.publish(ctx, beat)

	if err := r.deps.Repo.AppendHeartbeat(ctx, beat); err != nil {
		return 0, monitorerr.NewTransientSupervisorError("append heartbeat", err)
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.Update(m.ID, m.Name, beat)
	}

	r.previousBeat = beat

	if monitor.Status(beat.Status) == monitor.StatusPending && m.RetryInterval > 0 {
		return time.Duration(m.RetryInterval) * time.Second, nil
	}
	return time.Duration(beatInterval) * time.Second, nil
}

// classifyAndNotify runs spec.md §4.3's classifier and, on an
// important-for-notify transition, the pre-command and notifier dispatch
// (§4.9). A DOWN beat that isn't itself important still accrues toward the
// resend-while-down threshold (§4.2 step 8's resend rule).
func (r *MonitorRuntime) classifyAndNotify(ctx context.Context, beat *heartbeat.Heartbeat, isFirst bool) {
	m := r.mon

	var prevStatus *monitor.Status
	if !isFirst && r.previousBeat != nil {
		s := monitor.Status(r.previousBeat.Status)
		prevStatus = &s
	}
	curr := monitor.Status(beat.Status)

	important := classify.Important(prevStatus, curr)
	beat.Important = important

	switch {
	case important:
		beat.DownCount = 0
		if classify.ImportantForNotify(prevStatus, curr) {
			if r.deps.PreCmd != nil {
				r.deps.PreCmd.Run(ctx, m, curr)
			}
			if r.deps.Notifier != nil {
				r.deps.Notifier.Dispatch(ctx, m, beat)
			}
		}
		r.deps.UptimeAgg.Invalidate(m.ID)
	case curr == monitor.StatusDown && m.ResendInterval > 0:
		beat.DownCount++
		if beat.DownCount >= m.ResendInterval {
			if r.deps.Notifier != nil {
				r.deps.Notifier.Dispatch(ctx, m, beat)
			}
			beat.DownCount = 0
		}
	}
}

func (r *MonitorRuntime) publish(ctx context.Context, beat *heartbeat.Heartbeat) {
	if r.deps.LiveBus == nil {
		return
	}
	m := r.mon
	payload, err := json.Marshal(publicHeartbeat{
		ID:        beat.ID,
		MonitorID: beat.MonitorID,
		Time:      beat.Time,
		Status:    beat.Status,
		Msg:       beat.Msg,
		Ping:      beat.Ping,
		Duration:  beat.Duration,
		Important: beat.Important,
	})
	if err != nil {
		r.deps.Log.Warn("marshal live heartbeat", zap.Error(err))
		return
	}
	r.deps.LiveBus.EmitHeartbeat(m.OwnerID, payload)

	if !r.deps.LiveBus.HasSubscribers(m.OwnerID) {
		return
	}
	avgPing, err := r.deps.UptimeAgg.AvgPing(ctx, m.ID, 24)
	if err != nil {
		r.deps.Log.Warn("compute avg ping", zap.Error(err))
	}
	uptime24, err := r.deps.UptimeAgg.Uptime(ctx, m.ID, 24)
	if err != nil {
		r.deps.Log.Warn("compute uptime 24h", zap.Error(err))
	}
	uptime720, err := r.deps.UptimeAgg.Uptime(ctx, m.ID, 720)
	if err != nil {
		r.deps.Log.Warn("compute uptime 720h", zap.Error(err))
	}
	cert, _ := r.deps.Repo.FindTLSInfo(ctx, m.ID)
	r.deps.LiveBus.EmitStats(m.OwnerID, livebus.StatsPayload{
		MonitorID: m.ID,
		AvgPing:   avgPing,
		Uptime24:  uptime24,
		Uptime720: uptime720,
		CertInfo:  cert,
	})
}

type publicHeartbeat struct {
	ID        int64     `json:"id"`
	MonitorID int64     `json:"monitorId"`
	Time      time.Time `json:"time"`
	Status    int       `json:"status"`
	Msg       string    `json:"msg"`
	Ping      *int64    `json:"ping,omitempty"`
	Duration  int64     `json:"duration"`
	Important bool      `json:"important"`
}
