// Package group implements the aggregate-status derivation for group
// monitors (spec.md §4.6).
package group

import (
	"context"

	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/repo"
)

// Result is the derived status and message for a group monitor's beat.
type Result struct {
	Status monitor.Status
	Msg    string
}

// Resolve computes the aggregate status of a group monitor from its direct
// children's latest heartbeats. Only active children are considered;
// an inactive child with no prior heartbeat is skipped rather than
// degrading the group, per spec.md §9's explicit ambiguous-behavior note.
func Resolve(ctx context.Context, r repo.Repository, groupID int64) (Result, error) {
	children, err := r.ListChildren(ctx, groupID)
	if err != nil {
		return Result{}, err
	}

	active := make([]*monitor.Monitor, 0, len(children))
	for _, c := range children {
		if c.Active {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return Result{Status: monitor.StatusPending, Msg: "Group empty"}, nil
	}

	status := monitor.StatusUp
	sawPending := false
	for _, c := range active {
		latest, err := r.FindLatestHeartbeat(ctx, c.ID)
		if err != nil {
			return Result{}, err
		}
		if latest == nil {
			sawPending = true
			continue
		}
		status = degrade(status, monitor.Status(latest.Status))
	}
	if sawPending && status == monitor.StatusUp {
		status = monitor.StatusPending
	}

	switch status {
	case monitor.StatusUp:
		return Result{Status: monitor.StatusUp, Msg: "All children up and running"}, nil
	case monitor.StatusDown:
		return Result{Status: monitor.StatusDown, Msg: "Child inaccessible"}, nil
	default:
		return Result{Status: monitor.StatusPending, Msg: "Child inaccessible"}, nil
	}
}

// degrade folds one more child's status into the running aggregate: UP only
// survives if every child is UP; PENDING degrades to DOWN once any child is
// DOWN.
func degrade(acc monitor.Status, childStatus monitor.Status) monitor.Status {
	switch childStatus {
	case monitor.StatusPending:
		if acc == monitor.StatusUp {
			return monitor.StatusPending
		}
		return acc
	case monitor.StatusDown:
		return monitor.StatusDown
	default: // UP, MAINTENANCE
		return acc
	}
}

