// Package tlstrack implements certificate capture bookkeeping and
// expiry-notification dedup (spec.md §4.7), grounded on the teacher's
// internal/outbox dispatch-then-record pattern: a side effect (notify) is
// only considered durable once the dedup row is written, mirroring how
// outbox.Runner only marks a message successful after its handler returns.
package tlstrack

import (
	"context"
	"fmt"

	"github.com/NordCoder/vigilant/internal/metrics"
	"github.com/NordCoder/vigilant/internal/monitor"
	"github.com/NordCoder/vigilant/internal/notify"
	"github.com/NordCoder/vigilant/internal/repo"
	"github.com/NordCoder/vigilant/internal/tlsinfo"
	"go.uber.org/zap"
)

// rootFingerprints is the set of known-root CA fingerprints skipped during
// expiry evaluation (spec.md §4.7 step 3: "skip known root CAs by
// fingerprint set"). Supplied by the caller of New; cmd/vigilant passes nil,
// so the set is empty there and no root is skipped.
type Tracker struct {
	repo    repo.Repository
	metrics metrics.Sink
	notify  notify.Notifier
	log     *zap.Logger

	rootFingerprints map[string]struct{}
}

func New(r repo.Repository, m metrics.Sink, n notify.Notifier, log *zap.Logger, rootFingerprints map[string]struct{}) *Tracker {
	if rootFingerprints == nil {
		rootFingerprints = map[string]struct{}{}
	}
	return &Tracker{repo: r, metrics: m, notify: n, log: log, rootFingerprints: rootFingerprints}
}

// Handle runs the full §4.7 sequence for one successful TLS handshake's
// captured chain.
func (t *Tracker) Handle(ctx context.Context, m *monitor.Monitor, info tlsinfo.Info, thresholds []int) error {
	prev, err := t.repo.FindTLSInfo(ctx, m.ID)
	if err != nil && err != repo.ErrNotFound {
		return fmt.Errorf("load previous tls info: %w", err)
	}

	leafChanged := prev == nil
	if prev != nil {
		prevLeaf := prev.Leaf()
		newLeaf := info.Leaf()
		if prevLeaf == nil || newLeaf == nil || prevLeaf.Fingerprint256 != newLeaf.Fingerprint256 {
			leafChanged = true
		}
	}

	if err := t.repo.UpsertTLSInfo(ctx, info); err != nil {
		return fmt.Errorf("upsert tls info: %w", err)
	}

	if leafChanged {
		if err := t.repo.DeleteNotificationSent(ctx, "certificate", m.ID); err != nil {
			t.log.Warn("delete stale cert dedup rows", zap.Int64("monitor_id", m.ID), zap.Error(err))
		}
	}

	if t.metrics != nil {
		t.metrics.UpdateTLS(m.ID, info)
	}

	if m.IgnoreTLS || !m.ExpiryNotification {
		return nil
	}

	for _, cert := range info.Chain {
		if _, isRoot := t.rootFingerprints[cert.Fingerprint256]; isRoot {
			continue
		}
		for _, threshold := range thresholds {
			if cert.DaysRemaining > threshold {
				continue
			}
			already, err := t.repo.HasNotificationSent(ctx, "certificate", m.ID, threshold)
			if err != nil {
				t.log.Warn("check cert dedup", zap.Int64("monitor_id", m.ID), zap.Error(err))
				continue
			}
			if already {
				continue
			}

			msg := fmt.Sprintf("[%s][%s] %s certificate %s will be expired in %d days",
				m.Name, m.URL, cert.CertType, cert.SubjectCN, cert.DaysRemaining)
			if t.notify != nil {
				t.notify.DispatchRaw(ctx, m, msg)
			}

			if err := t.repo.RecordNotificationSent(ctx, "certificate", m.ID, threshold); err != nil {
				t.log.Error("record cert dedup", zap.Int64("monitor_id", m.ID), zap.Error(err))
			}
		}
	}

	return nil
}
