package group

import (
	"context"
	"testing"

	"github.com/NordCoder/vigilant/internal/heartbeat"
	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/repo/memory"
)

func newChild(r *memory.Repo, id, parent int64, status monitor.Status, hasBeat bool) {
	r.PutMonitor(&monitor.Monitor{ID: id, ParentID: &parent, Active: true})
	if hasBeat {
		_ = r.AppendHeartbeat(context.Background(), &heartbeat.Heartbeat{MonitorID: id, Status: int(status)})
	}
}

func TestResolveAllUp(t *testing.T) {
	r := memory.New()
	r.PutMonitor(&monitor.Monitor{ID: 1, Active: true})
	newChild(r, 2, 1, monitor.StatusUp, true)
	newChild(r, 3, 1, monitor.StatusUp, true)

	res, err := Resolve(context.Background(), r, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != monitor.StatusUp || res.Msg != "All children up and running" {
		t.Fatalf("got %+v", res)
	}
}

func TestResolvePendingChildDegrades(t *testing.T) {
	r := memory.New()
	r.PutMonitor(&monitor.Monitor{ID: 1, Active: true})
	newChild(r, 2, 1, monitor.StatusUp, true)
	newChild(r, 3, 1, monitor.StatusPending, true)
	newChild(r, 4, 1, monitor.StatusUp, true)

	res, err := Resolve(context.Background(), r, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != monitor.StatusPending {
		t.Fatalf("expected PENDING, got %+v", res)
	}
}

func TestResolveDownChildWins(t *testing.T) {
	r := memory.New()
	r.PutMonitor(&monitor.Monitor{ID: 1, Active: true})
	newChild(r, 2, 1, monitor.StatusUp, true)
	newChild(r, 3, 1, monitor.StatusDown, true)

	res, err := Resolve(context.Background(), r, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != monitor.StatusDown {
		t.Fatalf("expected DOWN, got %+v", res)
	}
}

func TestResolveEmptyGroup(t *testing.T) {
	r := memory.New()
	r.PutMonitor(&monitor.Monitor{ID: 1, Active: true})

	res, err := Resolve(context.Background(), r, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != monitor.StatusPending || res.Msg != "Group empty" {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveInactiveChildWithNoBeatIsSkipped(t *testing.T) {
	r := memory.New()
	r.PutMonitor(&monitor.Monitor{ID: 1, Active: true})
	parent := int64(1)
	r.PutMonitor(&monitor.Monitor{ID: 2, ParentID: &parent, Active: false})
	newChild(r, 3, 1, monitor.StatusUp, true)

	res, err := Resolve(context.Background(), r, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != monitor.StatusUp {
		t.Fatalf("expected inactive child to be skipped, got %+v", res)
	}
}
