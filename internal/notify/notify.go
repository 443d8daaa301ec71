package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"go.uber.org/zap"

	"github.com/NordCoder/vigilant/internal/heartbeat"
	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/monitorerr"
	"github.com/NordCoder/vigilant/internal/repo"
	"github.com/NordCoder/vigilant/internal/retry"
)

// Notifier is the narrow interface the core calls on an important-for-notify
// beat (spec.md §4.9) and on a certificate-expiry threshold crossing
// (spec.md §4.7). Dispatch is fire-and-forget from the core's perspective:
// provider failures are logged, never propagated.
type Notifier interface {
	Dispatch(ctx context.Context, m *monitor.Monitor, b *heartbeat.Heartbeat)
	DispatchRaw(ctx context.Context, m *monitor.Monitor, message string)
}

// sender abstracts message dispatch so tests can substitute a fake instead
// of hitting real services, mirroring vigil's notify.Sender.
type sender interface {
	Send(url, message string) error
}

type shoutrrrSender struct{}

func (shoutrrrSender) Send(url, message string) error {
	return shoutrrr.Send(url, message)
}

// Shoutrrr is the production Notifier: each of a monitor's configured
// provider URLs (repo.ListNotificationsForMonitor) is sent the formatted
// message independently; one provider's failure never blocks another's.
type Shoutrrr struct {
	repo repo.Repository
	send sender
	log  *zap.Logger
	tz   *time.Location
}

func New(r repo.Repository, log *zap.Logger, tz *time.Location) *Shoutrrr {
	if tz == nil {
		tz = time.UTC
	}
	return &Shoutrrr{repo: r, send: shoutrrrSender{}, log: log, tz: tz}
}

// WithSender overrides the underlying sender, for tests.
func (s *Shoutrrr) WithSender(snd sender) *Shoutrrr {
	s.send = snd
	return s
}

// Dispatch renders the heartbeat into a message and fans it out to every
// provider configured for the monitor, per spec.md §4.9 steps 2-4.
func (s *Shoutrrr) Dispatch(ctx context.Context, m *monitor.Monitor, b *heartbeat.Heartbeat) {
	msg := formatMessage(m, b, s.tz)
	s.DispatchRaw(ctx, m, msg)
}

func (s *Shoutrrr) DispatchRaw(ctx context.Context, m *monitor.Monitor, message string) {
	providers, err := s.repo.ListNotificationsForMonitor(ctx, m.ID)
	if err != nil {
		s.log.Warn("list notification providers", zap.Int64("monitor_id", m.ID), zap.Error(err))
		return
	}
	for _, url := range providers {
		sendURL := url
		policy := retry.Policy{
			Name:     "notify_dispatch",
			Attempts: 3,
			Backoff:  retry.ExpoJitter{Base: 200 * time.Millisecond, Max: 2 * time.Second, Jitter: 0.2},
		}
		err := retry.Do(ctx, func() error { return s.send.Send(sendURL, message) }, policy)
		if err != nil {
			nerr := &monitorerr.NotifierError{Provider: sendURL, Err: err}
			s.log.Warn("notification dispatch failed", zap.Int64("monitor_id", m.ID), zap.Error(nerr))
			continue
		}
		s.log.Debug("notification dispatched", zap.Int64("monitor_id", m.ID))
	}
}

// formatMessage builds "[name] [✅ Up | 🔴 Down] <msg>" per spec.md §4.9
// step 2, with a localized timestamp appended per the payload requirement
// in step 4.
func formatMessage(m *monitor.Monitor, b *heartbeat.Heartbeat, tz *time.Location) string {
	emoji := "🔴 Down"
	switch monitor.Status(b.Status) {
	case monitor.StatusUp:
		emoji = "✅ Up"
	case monitor.StatusMaintenance:
		emoji = "🔧 Maintenance"
	case monitor.StatusPending:
		emoji = "🟡 Pending"
	}
	msg := b.Msg
	if msg == "" {
		msg = "N/A"
	}
	ts := b.Time.In(tz).Format(time.RFC3339)
	return fmt.Sprintf("[%s] [%s] %s (%s)", m.Name, emoji, msg, ts)
}

// Noop is a Notifier that does nothing, for callers that haven't wired a
// real provider stack (e.g. unit tests of the runtime in isolation).
type Noop struct{}

func (Noop) Dispatch(context.Context, *monitor.Monitor, *heartbeat.Heartbeat) {}
func (Noop) DispatchRaw(context.Context, *monitor.Monitor, string)           {}
