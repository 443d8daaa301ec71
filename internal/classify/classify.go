// Package classify holds the pure transition-classifier predicates from
// spec.md §4.3: which status transitions are worth logging, and which of
// those are also worth notifying on.
package classify

import "github.com/NordCoder/vigilant/internal/monitor"

// Important reports whether the transition from prev to curr is worth
// recording as a log-level event. prev is nil for the first beat of a
// monitor's lifetime.
func Important(prev *monitor.Status, curr monitor.Status) bool {
	if prev == nil {
		return true
	}
	p := *prev
	switch {
	case p == monitor.StatusUp && curr == monitor.StatusDown:
		return true
	case p == monitor.StatusDown && curr == monitor.StatusUp:
		return true
	case p == monitor.StatusPending && curr == monitor.StatusDown:
		return true
	case p == monitor.StatusUp && curr == monitor.StatusMaintenance:
		return true
	case p == monitor.StatusDown && curr == monitor.StatusMaintenance:
		return true
	case p == monitor.StatusMaintenance && curr == monitor.StatusUp:
		return true
	case p == monitor.StatusMaintenance && curr == monitor.StatusDown:
		return true
	default:
		return false
	}
}

// ImportantForNotify reports whether the transition should additionally
// trigger the notification path. Every notify-worthy transition is also
// Important; MAINTENANCE transitions are logged but never notified, except
// MAINTENANCE→DOWN which spec.md calls out explicitly.
func ImportantForNotify(prev *monitor.Status, curr monitor.Status) bool {
	if prev == nil {
		return true
	}
	p := *prev
	switch {
	case p == monitor.StatusUp && curr == monitor.StatusDown:
		return true
	case p == monitor.StatusDown && curr == monitor.StatusUp:
		return true
	case p == monitor.StatusPending && curr == monitor.StatusDown:
		return true
	case p == monitor.StatusMaintenance && curr == monitor.StatusDown:
		return true
	default:
		return false
	}
}
