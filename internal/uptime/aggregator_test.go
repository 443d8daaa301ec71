package uptime

import (
	"context"
	"testing"
	"time"

	"github.com/NordCoder/vigilant/internal/heartbeat"
	"github.com/NordCoder/vigilant/internal/monitor"
)

type fakeSource struct {
	beats []*heartbeat.Heartbeat
}

func (f *fakeSource) ListHeartbeatsSince(_ context.Context, _ int64, since time.Time) ([]*heartbeat.Heartbeat, error) {
	var out []*heartbeat.Heartbeat
	for _, b := range f.beats {
		if b.Time.After(since) {
			out = append(out, b)
		}
	}
	return out, nil
}

func TestUptimeBounds(t *testing.T) {
	now := time.Now().UTC()
	beats := []*heartbeat.Heartbeat{
		{MonitorID: 1, Time: now.Add(-30 * time.Minute), Status: int(monitor.StatusUp), Duration: 1800},
		{MonitorID: 1, Time: now.Add(-10 * time.Minute), Status: int(monitor.StatusDown), Duration: 1200},
	}
	agg := New(&fakeSource{beats: beats})
	ratio, err := agg.Uptime(context.Background(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if ratio < 0 || ratio > 1 {
		t.Fatalf("ratio out of bounds: %v", ratio)
	}
}

func TestUptimeEmptyWindowDefaultsByLatestStatus(t *testing.T) {
	agg := New(&fakeSource{})
	ratio, err := agg.Uptime(context.Background(), 1, 24)
	if err != nil {
		t.Fatal(err)
	}
	if ratio != 0 {
		t.Fatalf("expected 0 for no heartbeats at all, got %v", ratio)
	}
}

func TestUptimeMaintenanceCountsAsUp(t *testing.T) {
	now := time.Now().UTC()
	beats := []*heartbeat.Heartbeat{
		{MonitorID: 1, Time: now.Add(-5 * time.Minute), Status: int(monitor.StatusMaintenance), Duration: 300},
	}
	agg := New(&fakeSource{beats: beats})
	ratio, err := agg.Uptime(context.Background(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if ratio != 1 {
		t.Fatalf("expected maintenance-only window to read 100%% uptime, got %v", ratio)
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache()
	c.Set(1, 24, 0.5)
	c.Set(2, 24, 0.9)
	c.Invalidate(1)
	if _, ok := c.Get(1, 24); ok {
		t.Error("expected monitor 1 entry to be gone")
	}
	if _, ok := c.Get(2, 24); !ok {
		t.Error("expected monitor 2 entry to remain")
	}
}
