// Package metrics implements the MetricsSink external collaborator
// (spec.md §1): per-monitor gauges/counters for status, ping, and
// certificate days-remaining. Grounded on the teacher's promauto usage in
// internal/services/ping-worker/runner.go.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NordCoder/vigilant/internal/heartbeat"
	"github.com/NordCoder/vigilant/internal/tlsinfo"
)

// Sink is the narrow interface the core calls on every tick and every TLS
// handshake. A nil Sink is valid everywhere it's accepted; callers should
// guard with a nil check rather than require a no-op implementation.
type Sink interface {
	Update(monitorID int64, monitorName string, b *heartbeat.Heartbeat)
	UpdateTLS(monitorID int64, info tlsinfo.Info)
}

// Prometheus is the production Sink, backed by client_golang.
type Prometheus struct {
	status       *prometheus.GaugeVec
	ping         *prometheus.GaugeVec
	certDays     *prometheus.GaugeVec
	beatsTotal   *prometheus.CounterVec
	importantTot *prometheus.CounterVec
}

// New registers the monitor gauges/counters against the default registerer.
// Call NewWith to register against a private registry (e.g. in tests).
func New() *Prometheus {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		status: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "monitor_status",
			Help: "Latest monitor status (0=down,1=up,2=pending,3=maintenance).",
		}, []string{"monitor_id", "monitor_name"}),
		ping: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "monitor_ping_ms",
			Help: "Latest probe round-trip time in milliseconds.",
		}, []string{"monitor_id", "monitor_name"}),
		certDays: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "monitor_cert_days_remaining",
			Help: "Days remaining before the leaf TLS certificate expires.",
		}, []string{"monitor_id"}),
		beatsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_heartbeats_total",
			Help: "Heartbeats produced per monitor.",
		}, []string{"monitor_id"}),
		importantTot: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_important_beats_total",
			Help: "Important (state-transition) heartbeats per monitor.",
		}, []string{"monitor_id"}),
	}
}

func (p *Prometheus) Update(monitorID int64, monitorName string, b *heartbeat.Heartbeat) {
	if p == nil || b == nil {
		return
	}
	id := strconv.FormatInt(monitorID, 10)
	p.status.WithLabelValues(id, monitorName).Set(float64(b.Status))
	p.beatsTotal.WithLabelValues(id).Inc()
	if b.Important {
		p.importantTot.WithLabelValues(id).Inc()
	}
	if b.Ping != nil {
		p.ping.WithLabelValues(id, monitorName).Set(float64(*b.Ping))
	}
}

func (p *Prometheus) UpdateTLS(monitorID int64, info tlsinfo.Info) {
	if p == nil {
		return
	}
	leaf := info.Leaf()
	if leaf == nil {
		return
	}
	p.certDays.WithLabelValues(strconv.FormatInt(monitorID, 10)).Set(float64(leaf.DaysRemaining))
}
