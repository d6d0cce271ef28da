package queue

import (
	"strings"
	"testing"
	"time"

	"github.com/cyperhq/integration-engine/internal/domain"
)

func TestEventMessageValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		msg     EventMessage
		wantErr string
	}{
		{
			name: "valid message",
			msg: EventMessage{
				EventID:    "evt-1",
				Kind:       domain.EventScanCompleted,
				Payload:    domain.Payload{"target": "example.com"},
				OccurredAt: time.Unix(1_700_000_000, 0),
			},
		},
		{
			name:    "missing event id",
			msg:     EventMessage{Kind: domain.EventScanCompleted},
			wantErr: "eventId is required",
		},
		{
			name:    "blank event id",
			msg:     EventMessage{EventID: "   ", Kind: domain.EventScanCompleted},
			wantErr: "eventId is required",
		},
		{
			name:    "invalid kind",
			msg:     EventMessage{EventID: "evt-1", Kind: domain.EventKind("scan.exploded")},
			wantErr: "invalid event kind",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.msg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestQueueNames(t *testing.T) {
	t.Parallel()

	if EventsQueue != "events" {
		t.Fatalf("EventsQueue = %q, want events", EventsQueue)
	}
	if EventsDLQ != "dlq.events" {
		t.Fatalf("EventsDLQ = %q, want dlq.events", EventsDLQ)
	}
}
