package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cyperhq/integration-engine/internal/domain"
	"github.com/cyperhq/integration-engine/internal/observability"
	"github.com/cyperhq/integration-engine/internal/queue"
)

// EventService accepts platform events and hands them to the broker
// for asynchronous fan-out. Emitting is cheap; delivery happens in the
// dispatch worker.
type EventService struct {
	publisher queue.Publisher
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewEventService(publisher queue.Publisher, logger *zap.Logger) (*EventService, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EventService{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (s *EventService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Emit validates and enqueues one event, returning its generated id.
func (s *EventService) Emit(ctx context.Context, kind domain.EventKind, payload domain.Payload) (string, error) {
	if !kind.IsValid() {
		return "", fmt.Errorf("%w: invalid event kind %q", domain.ErrValidation, kind)
	}

	msg := queue.EventMessage{
		EventID:    uuid.NewString(),
		Kind:       kind,
		Payload:    payload,
		OccurredAt: s.now().UTC(),
	}

	if err := s.publisher.Publish(ctx, queue.EventsQueue, msg); err != nil {
		return "", fmt.Errorf("failed to publish event: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncEventPublished(kind.String())
	}
	s.logger.Info("event emitted",
		zap.String("eventId", msg.EventID),
		zap.String("event", kind.String()),
	)
	return msg.EventID, nil
}
