package classify

import (
	"testing"

	"github.com/NordCoder/vigilant/internal/monitor"
)

func statusPtr(s monitor.Status) *monitor.Status { return &s }

func TestImportant(t *testing.T) {
	up := monitor.StatusUp
	down := monitor.StatusDown
	pending := monitor.StatusPending
	maint := monitor.StatusMaintenance

	cases := []struct {
		name string
		prev *monitor.Status
		curr monitor.Status
		want bool
	}{
		{"first beat", nil, up, true},
		{"up to down", &up, down, true},
		{"down to up", &down, up, true},
		{"pending to down", &pending, down, true},
		{"up to maintenance", &up, maint, true},
		{"down to maintenance", &down, maint, true},
		{"maintenance to up", &maint, up, true},
		{"maintenance to down", &maint, down, true},
		{"up to up", &up, up, false},
		{"down to pending", &down, pending, false},
		{"pending to up", &pending, up, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Important(c.prev, c.curr); got != c.want {
				t.Errorf("Important(%v, %v) = %v, want %v", c.prev, c.curr, got, c.want)
			}
		})
	}
}

func TestImportantForNotifyImpliesImportant(t *testing.T) {
	statuses := []monitor.Status{monitor.StatusUp, monitor.StatusDown, monitor.StatusPending, monitor.StatusMaintenance}
	for _, p := range statuses {
		prev := p
		for _, c := range statuses {
			if ImportantForNotify(&prev, c) && !Important(&prev, c) {
				t.Errorf("ImportantForNotify(%v,%v) true but Important false", prev, c)
			}
		}
	}
	if !Important(nil, monitor.StatusUp) {
		t.Error("first beat must be important")
	}
}

func TestMaintenanceNeverNotifiedExceptToDown(t *testing.T) {
	up := monitor.StatusUp
	down := monitor.StatusDown
	maint := monitor.StatusMaintenance

	if ImportantForNotify(&up, maint) {
		t.Error("transition into maintenance must not notify")
	}
	if ImportantForNotify(&maint, up) {
		t.Error("maintenance to up must not notify")
	}
	if !ImportantForNotify(&maint, down) {
		t.Error("maintenance to down must notify")
	}
}
