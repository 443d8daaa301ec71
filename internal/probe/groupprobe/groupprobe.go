// Package groupprobe adapts internal/group's aggregate-status resolver
// (spec.md §4.6) to the probe.Driver contract so the dispatch registry can
// treat a group monitor uniformly with every network-probing type, even
// though it never performs I/O of its own.
package groupprobe

import (
	"context"

	"github.com/NordCoder/vigilant/internal/group"
	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/probe"
)

type Driver struct{}

func (Driver) Check(ctx context.Context, m *monitor.Monitor, env probe.Env) (probe.Result, error) {
	res, err := group.Resolve(ctx, env.Repo, m.ID)
	if err != nil {
		return probe.Result{}, monitorerr.NewNetworkError("group resolve failed", err)
	}
	if res.Status == monitor.StatusDown {
		return probe.Result{}, monitorerr.NewProbePredicateError("%s", res.Msg)
	}
	return probe.Result{Status: res.Status, Msg: res.Msg}, nil
}
