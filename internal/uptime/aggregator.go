// Package uptime implements the windowed availability calculation and its
// result cache (spec.md §4.8), grounded on the teacher's habit of doing
// aggregate arithmetic in plain Go over rows already fetched from the
// Repository (internal/repository/postgres/check_repo.go's FetchDue does the
// analogous "trim + aggregate in the query" pattern; here the trimming is
// done in Go per the design note in spec.md §9 to avoid per-language date
// arithmetic pitfalls).
package uptime

import (
	"context"
	"time"

	"github.com/NordCoder/vigilant/internal/heartbeat"
	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/repo"
)

// Aggregator computes and caches uptime ratios and average ping.
type Aggregator struct {
	src   repo.UptimeSource
	cache *Cache
}

func New(src repo.UptimeSource) *Aggregator {
	return &Aggregator{src: src, cache: NewCache()}
}

// Uptime returns the fraction of windowHours during which monitorID was
// UP or MAINTENANCE, per spec.md §4.8's trimming algorithm.
func (a *Aggregator) Uptime(ctx context.Context, monitorID int64, windowHours float64) (float64, error) {
	if v, ok := a.cache.Get(monitorID, windowHours); ok {
		return v, nil
	}
	now := time.Now().UTC()
	t0 := now.Add(-time.Duration(windowHours * float64(time.Hour)))

	beats, err := a.src.ListHeartbeatsSince(ctx, monitorID, t0)
	if err != nil {
		return 0, err
	}
	ratio := computeUptime(beats, t0)
	a.cache.Set(monitorID, windowHours, ratio)
	return ratio, nil
}

func computeUptime(beats []*heartbeat.Heartbeat, t0 time.Time) float64 {
	var totalDuration, upDuration int64
	var latestStatus monitor.Status
	haveLatest := false

	for _, b := range beats {
		secondsSinceT0 := int64(b.Time.Sub(t0).Seconds())
		dur := b.Duration
		if dur > secondsSinceT0 {
			dur = secondsSinceT0
		}
		if dur < 0 {
			dur = 0
		}
		totalDuration += dur
		st := monitor.Status(b.Status)
		if st == monitor.StatusUp || st == monitor.StatusMaintenance {
			upDuration += dur
		}
		latestStatus = st
		haveLatest = true
	}

	if totalDuration > 0 {
		return float64(upDuration) / float64(totalDuration)
	}
	if haveLatest && (latestStatus == monitor.StatusUp || latestStatus == monitor.StatusMaintenance) {
		return 1
	}
	return 0
}

// AvgPing returns the mean of non-nil heartbeat.Ping values over the window,
// or 0 if none are present.
func (a *Aggregator) AvgPing(ctx context.Context, monitorID int64, windowHours float64) (float64, error) {
	now := time.Now().UTC()
	t0 := now.Add(-time.Duration(windowHours * float64(time.Hour)))
	beats, err := a.src.ListHeartbeatsSince(ctx, monitorID, t0)
	if err != nil {
		return 0, err
	}
	var sum float64
	var n int
	for _, b := range beats {
		if b.Ping != nil {
			sum += float64(*b.Ping)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// Invalidate purges every cached window for monitorID; called on every
// important beat per spec.md §4.8.
func (a *Aggregator) Invalidate(monitorID int64) {
	a.cache.Invalidate(monitorID)
}
