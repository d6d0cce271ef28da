package webhook

import (
	"context"
	"fmt"
	"sync"

	"github.com/cyperhq/integration-engine/internal/domain"
)

const defaultLogQueryLimit = 100

// DeliveryLog is the append-only attempt history. Implementations must
// tolerate concurrent appends from fan-out deliveries.
type DeliveryLog interface {
	Record(ctx context.Context, attempt *domain.DeliveryAttempt) error
	Query(ctx context.Context, endpointID string, limit int) ([]domain.DeliveryAttempt, error)
}

// InMemoryDeliveryLog stores attempts in an append-only slice. Growth is
// unbounded; retention is bounded only by the caller's query limits.
type InMemoryDeliveryLog struct {
	mu       sync.Mutex
	attempts []domain.DeliveryAttempt
}

var _ DeliveryLog = (*InMemoryDeliveryLog)(nil)

func NewInMemoryDeliveryLog() *InMemoryDeliveryLog {
	return &InMemoryDeliveryLog{}
}

func (l *InMemoryDeliveryLog) Record(_ context.Context, attempt *domain.DeliveryAttempt) error {
	if attempt == nil {
		return fmt.Errorf("%w: delivery attempt is required", domain.ErrValidation)
	}

	l.mu.Lock()
	l.attempts = append(l.attempts, *attempt)
	l.mu.Unlock()
	return nil
}

// Query returns the most recent attempts newest-first, optionally
// filtered by endpoint id.
func (l *InMemoryDeliveryLog) Query(
	_ context.Context,
	endpointID string,
	limit int,
) ([]domain.DeliveryAttempt, error) {
	if limit <= 0 {
		limit = defaultLogQueryLimit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	results := make([]domain.DeliveryAttempt, 0, limit)
	for i := len(l.attempts) - 1; i >= 0 && len(results) < limit; i-- {
		if endpointID != "" && l.attempts[i].EndpointID != endpointID {
			continue
		}
		results = append(results, l.attempts[i])
	}
	return results, nil
}
