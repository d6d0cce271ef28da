package webhook

import (
	"context"
	"fmt"
	"sync"

	"github.com/cyperhq/integration-engine/internal/domain"
)

// Registry is the endpoint subscription store.
type Registry interface {
	Register(ctx context.Context, url string, events []domain.EventKind, secret string) (*domain.Endpoint, error)
	Unregister(ctx context.Context, endpointID string) (bool, error)
	Get(ctx context.Context, endpointID string) (*domain.Endpoint, error)
	List(ctx context.Context) ([]domain.Endpoint, error)
}

// InMemoryRegistry keeps endpoints in process memory. It is the default
// store; a gorm-backed registry exists for deployments that need
// registrations to survive restarts.
type InMemoryRegistry struct {
	mu        sync.RWMutex
	endpoints map[string]*domain.Endpoint
	order     []string
}

var _ Registry = (*InMemoryRegistry)(nil)

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		endpoints: make(map[string]*domain.Endpoint),
	}
}

func (r *InMemoryRegistry) Register(
	_ context.Context,
	url string,
	events []domain.EventKind,
	secret string,
) (*domain.Endpoint, error) {
	endpoint, err := domain.NewEndpoint(url, events, secret)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.endpoints[endpoint.ID] = endpoint
	r.order = append(r.order, endpoint.ID)
	r.mu.Unlock()

	copied := *endpoint
	return &copied, nil
}

// Unregister removes the endpoint if present and reports whether it
// existed. Removing a missing id is not an error.
func (r *InMemoryRegistry) Unregister(_ context.Context, endpointID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.endpoints[endpointID]; !ok {
		return false, nil
	}

	delete(r.endpoints, endpointID)
	for i, id := range r.order {
		if id == endpointID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *InMemoryRegistry) Get(_ context.Context, endpointID string) (*domain.Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	endpoint, ok := r.endpoints[endpointID]
	if !ok {
		return nil, fmt.Errorf("%w: endpoint %q", domain.ErrNotFound, endpointID)
	}

	copied := *endpoint
	return &copied, nil
}

// List returns all registered endpoints in insertion order.
func (r *InMemoryRegistry) List(_ context.Context) ([]domain.Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	endpoints := make([]domain.Endpoint, 0, len(r.order))
	for _, id := range r.order {
		if endpoint, ok := r.endpoints[id]; ok {
			endpoints = append(endpoints, *endpoint)
		}
	}
	return endpoints, nil
}
