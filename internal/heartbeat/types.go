// Package heartbeat defines the append-only beat record a Monitor Runtime
// tick produces.
package heartbeat

import "time"

// Heartbeat is one probe outcome record for a monitor, per spec.md §3.
type Heartbeat struct {
	ID        int64
	MonitorID int64
	Time      time.Time // UTC, ms precision
	Status    int       // monitor.Status, kept as int to avoid an import cycle with callers that only persist
	Msg       string
	Ping      *int64 // ms, nil when the probe produced none
	Duration  int64  // seconds since the previous heartbeat of this monitor; 0 for the first
	Important bool
	DownCount int
}
