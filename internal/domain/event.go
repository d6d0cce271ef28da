package domain

import (
	"fmt"
	"strings"
)

// EventKind is the closed set of platform events that can be delivered
// to webhook subscribers.
type EventKind string

const (
	EventScanStarted        EventKind = "scan.started"
	EventScanCompleted      EventKind = "scan.completed"
	EventScanFailed         EventKind = "scan.failed"
	EventVulnerabilityFound EventKind = "vulnerability.found"
	EventCriticalFinding    EventKind = "critical.finding"
	EventPaymentSuccess     EventKind = "payment.success"
	EventPaymentFailed      EventKind = "payment.failed"
	EventTrialExpiring      EventKind = "trial.expiring"
)

func (k EventKind) String() string { return string(k) }

func (k EventKind) IsValid() bool {
	switch k {
	case EventScanStarted, EventScanCompleted, EventScanFailed,
		EventVulnerabilityFound, EventCriticalFinding,
		EventPaymentSuccess, EventPaymentFailed, EventTrialExpiring:
		return true
	}
	return false
}

func ParseEventKindFromString(s string) (EventKind, error) {
	k := EventKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid event kind %q", ErrValidation, s)
	}
	return k, nil
}

// AllEventKinds returns every supported event kind (8 total).
func AllEventKinds() []EventKind {
	return []EventKind{
		EventScanStarted,
		EventScanCompleted,
		EventScanFailed,
		EventVulnerabilityFound,
		EventCriticalFinding,
		EventPaymentSuccess,
		EventPaymentFailed,
		EventTrialExpiring,
	}
}

// Payload is caller-defined event data. It is opaque to the delivery
// subsystem beyond being JSON-serializable.
type Payload map[string]any
