// Package notifyhist models the (type, monitorId, days) dedup rows used to
// avoid repeating certificate-expiry notifications (spec.md §3, §4.7).
package notifyhist

// Sent is one row of NotificationSentHistory.
type Sent struct {
	Type      string // "certificate"
	MonitorID int64
	Days      int
}
