package runtime

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/NordCoder/vigilant/internal/heartbeat"
	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
	"github.com/NordCoder/vigilant/internal/repo/memory"
	"github.com/NordCoder/vigilant/internal/uptime"
)

const fakeType monitor.Type = "test-fake"

// scriptedDriver returns its results in order, one per Check call, and
// fails the test if exhausted.
type scriptedDriver struct {
	t       *testing.T
	results []scriptedResult
	i       int
}

type scriptedResult struct {
	status monitor.Status
	err    error
}

func (d *scriptedDriver) Check(_ context.Context, _ *monitor.Monitor, _ probe.Env) (probe.Result, error) {
	if d.i >= len(d.results) {
		d.t.Fatalf("scriptedDriver exhausted at call %d", d.i)
	}
	r := d.results[d.i]
	d.i++
	if r.err != nil {
		return probe.Result{}, r.err
	}
	return probe.Result{Status: r.status, Msg: "ok"}, nil
}

type recordingNotifier struct {
	dispatches []monitor.Status
}

func (n *recordingNotifier) Dispatch(_ context.Context, _ *monitor.Monitor, b *heartbeat.Heartbeat) {
	n.dispatches = append(n.dispatches, monitor.Status(b.Status))
}
func (n *recordingNotifier) DispatchRaw(context.Context, *monitor.Monitor, string) {}

func newTestDeps(t *testing.T, r *memory.Repo, notifier *recordingNotifier) *Deps {
	reg := probe.NewRegistry()
	env := DefaultEnv()
	return &Deps{
		Repo:      r,
		Registry:  reg,
		Notifier:  notifier,
		UptimeAgg: uptime.New(r),
		Env:       env,
		Log:       zap.NewNop(),
	}
}

func runN(t *testing.T, rt *MonitorRuntime, n int) []monitor.Status {
	t.Helper()
	var got []monitor.Status
	for i := 0; i < n; i++ {
		if _, err := rt.tick(context.Background()); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		got = append(got, monitor.Status(rt.previousBeat.Status))
	}
	return got
}

// TestFlapWithRetriesProducesPendingPendingDownUp exercises spec's
// flap-with-retries scenario: two failures are absorbed as PENDING before
// the monitor is declared DOWN, and a subsequent success clears it to UP.
func TestFlapWithRetriesProducesPendingPendingDownUp(t *testing.T) {
	r := memory.New()
	m := &monitor.Monitor{ID: 1, Type: fakeType, Interval: 60, MaxRetries: 2}
	r.PutMonitor(m)

	driver := &scriptedDriver{t: t, results: []scriptedResult{
		{err: monitorerr.NewNetworkError("connect failed", nil)},
		{err: monitorerr.NewNetworkError("connect failed", nil)},
		{err: monitorerr.NewNetworkError("connect failed", nil)},
		{status: monitor.StatusUp},
	}}
	deps := newTestDeps(t, r, &recordingNotifier{})
	deps.Registry.Register(fakeType, driver)

	rt := New(m, deps)
	got := runN(t, rt, 4)

	want := []monitor.Status{monitor.StatusPending, monitor.StatusPending, monitor.StatusDown, monitor.StatusUp}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("beat %d: got %v, want %v (full=%v)", i, got[i], want[i], got)
		}
	}
}

// TestResendWhileDownNotifiesOnThreshold covers spec's resend-while-down
// rule: the initial UP->DOWN transition notifies, then only every
// resendInterval-th subsequent DOWN beat notifies again.
func TestResendWhileDownNotifiesOnThreshold(t *testing.T) {
	r := memory.New()
	m := &monitor.Monitor{ID: 1, Type: fakeType, Interval: 60, MaxRetries: 0, ResendInterval: 3}
	r.PutMonitor(m)

	driver := &scriptedDriver{t: t, results: []scriptedResult{
		{status: monitor.StatusUp},
		{err: monitorerr.NewNetworkError("down", nil)},
		{err: monitorerr.NewNetworkError("down", nil)},
		{err: monitorerr.NewNetworkError("down", nil)},
		{err: monitorerr.NewNetworkError("down", nil)},
		{err: monitorerr.NewNetworkError("down", nil)},
	}}
	notifier := &recordingNotifier{}
	deps := newTestDeps(t, r, notifier)
	deps.Registry.Register(fakeType, driver)

	rt := New(m, deps)
	runN(t, rt, 6)

	want := []monitor.Status{monitor.StatusUp, monitor.StatusDown, monitor.StatusDown}
	if len(notifier.dispatches) != len(want) {
		t.Fatalf("got %d dispatches %v, want %d", len(notifier.dispatches), notifier.dispatches, len(want))
	}
	for i := range want {
		if notifier.dispatches[i] != want[i] {
			t.Fatalf("dispatch %d: got %v, want %v", i, notifier.dispatches[i], want[i])
		}
	}
}

// TestUpsideDownInvertsCleanUpResult covers spec's upside-down design note:
// a probe that reports the target reachable is treated as DOWN.
func TestUpsideDownInvertsCleanUpResult(t *testing.T) {
	r := memory.New()
	m := &monitor.Monitor{ID: 1, Type: fakeType, Interval: 60, MaxRetries: 0, UpsideDown: true}
	r.PutMonitor(m)

	driver := &scriptedDriver{t: t, results: []scriptedResult{{status: monitor.StatusUp}}}
	deps := newTestDeps(t, r, &recordingNotifier{})
	deps.Registry.Register(fakeType, driver)

	rt := New(m, deps)
	got := runN(t, rt, 1)

	if got[0] != monitor.StatusDown {
		t.Fatalf("expected upside-down UP result to invert to DOWN, got %v", got[0])
	}
}

// TestUpsideDownInvertsProbeFailureToUp covers the other half of the same
// design note: a probe failure on an upsideDown monitor (the target being
// unreachable) is the expected, healthy outcome and reports UP immediately,
// never decaying through PENDING/DOWN retry accounting.
func TestUpsideDownInvertsProbeFailureToUp(t *testing.T) {
	r := memory.New()
	m := &monitor.Monitor{ID: 1, Type: fakeType, Interval: 60, MaxRetries: 3, UpsideDown: true}
	r.PutMonitor(m)

	driver := &scriptedDriver{t: t, results: []scriptedResult{{err: monitorerr.NewNetworkError("connect failed", nil)}}}
	deps := newTestDeps(t, r, &recordingNotifier{})
	deps.Registry.Register(fakeType, driver)

	rt := New(m, deps)
	got := runN(t, rt, 1)

	if got[0] != monitor.StatusUp {
		t.Fatalf("expected upside-down probe failure to invert to UP, got %v", got[0])
	}
	if rt.retries != 0 {
		t.Fatalf("expected retries reset to 0 on inverted failure, got %d", rt.retries)
	}
}

// TestMaintenanceSuppressesProbing covers spec's maintenance-window step:
// an active window forces MAINTENANCE without ever dispatching the driver.
func TestMaintenanceSuppressesProbing(t *testing.T) {
	r := memory.New()
	m := &monitor.Monitor{ID: 1, Type: fakeType, Interval: 60}
	r.PutMonitor(m)
	r.PutMaintenance(1, monitor.MaintenanceWindow{
		Strategy: monitor.MaintenanceRecurringInterval,
		Active:   true,
	})

	driver := &scriptedDriver{t: t, results: nil}
	deps := newTestDeps(t, r, &recordingNotifier{})
	deps.Registry.Register(fakeType, driver)

	rt := New(m, deps)
	got := runN(t, rt, 1)

	if got[0] != monitor.StatusMaintenance {
		t.Fatalf("expected MAINTENANCE, got %v", got[0])
	}
	if driver.i != 0 {
		t.Fatalf("driver should never be dispatched during maintenance, got %d calls", driver.i)
	}
}
