// Package notifier sends operational alerts to team chat and incident
// tooling. These are side channels for humans; customer-facing webhook
// delivery lives in the webhook package.
package notifier

import "time"

const defaultNotifyTimeout = 10 * time.Second

// ScanSummary describes a finished scan for notification formatting.
type ScanSummary struct {
	Target        string
	FindingsCount int
	CriticalCount int
	ReportURL     string
}

// Finding describes a single vulnerability for alerting.
type Finding struct {
	Title       string
	Severity    string
	CVSSScore   float64
	URL         string
	Description string
}
