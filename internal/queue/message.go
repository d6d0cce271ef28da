package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyperhq/integration-engine/internal/domain"
)

// EventMessage is the broker payload for platform events awaiting
// webhook fan-out.
type EventMessage struct {
	EventID    string           `json:"eventId"`
	Kind       domain.EventKind `json:"kind"`
	Payload    domain.Payload   `json:"payload,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}

func (m EventMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return fmt.Errorf("eventId is required")
	}
	if !m.Kind.IsValid() {
		return fmt.Errorf("invalid event kind %q", m.Kind)
	}
	return nil
}
