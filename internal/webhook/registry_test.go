package webhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cyperhq/integration-engine/internal/domain"
)

func TestInMemoryRegistryRegister(t *testing.T) {
	t.Parallel()

	registry := NewInMemoryRegistry()
	endpoint, err := registry.Register(context.Background(),
		"https://example.com/hook",
		[]domain.EventKind{domain.EventScanCompleted},
		"s3cr3t",
	)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if endpoint.ID == "" {
		t.Error("endpoint ID is empty")
	}
	if !endpoint.Enabled {
		t.Error("endpoint not enabled by default")
	}
	if endpoint.RetryCount != domain.DefaultRetryCount {
		t.Errorf("RetryCount = %d, want %d", endpoint.RetryCount, domain.DefaultRetryCount)
	}
	if endpoint.Timeout != domain.DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", endpoint.Timeout, domain.DefaultTimeout)
	}
}

func TestInMemoryRegistryRegisterRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		events []domain.EventKind
	}{
		{
			name:   "relative url",
			url:    "/hook",
			events: []domain.EventKind{domain.EventScanCompleted},
		},
		{
			name:   "unsupported scheme",
			url:    "ftp://example.com/hook",
			events: []domain.EventKind{domain.EventScanCompleted},
		},
		{
			name:   "no events",
			url:    "https://example.com/hook",
			events: nil,
		},
		{
			name:   "unknown event",
			url:    "https://example.com/hook",
			events: []domain.EventKind{"scan.exploded"},
		},
	}

	registry := NewInMemoryRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := registry.Register(context.Background(), tt.url, tt.events, "s3cr3t")
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Register() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestInMemoryRegistryListInsertionOrder(t *testing.T) {
	t.Parallel()

	registry := NewInMemoryRegistry()
	ctx := context.Background()

	urls := []string{
		"https://a.example.com/hook",
		"https://b.example.com/hook",
		"https://c.example.com/hook",
	}
	for _, url := range urls {
		if _, err := registry.Register(ctx, url, []domain.EventKind{domain.EventScanStarted}, "s3cr3t"); err != nil {
			t.Fatalf("Register(%s) error = %v", url, err)
		}
	}

	endpoints, err := registry.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(endpoints) != len(urls) {
		t.Fatalf("List() returned %d endpoints, want %d", len(endpoints), len(urls))
	}
	for i, url := range urls {
		if endpoints[i].URL != url {
			t.Errorf("endpoints[%d].URL = %s, want %s", i, endpoints[i].URL, url)
		}
	}
}

func TestInMemoryRegistryUnregister(t *testing.T) {
	t.Parallel()

	registry := NewInMemoryRegistry()
	ctx := context.Background()

	endpoint, err := registry.Register(ctx,
		"https://example.com/hook",
		[]domain.EventKind{domain.EventPaymentSuccess},
		"s3cr3t",
	)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	removed, err := registry.Unregister(ctx, endpoint.ID)
	if err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if !removed {
		t.Error("Unregister() = false for existing endpoint")
	}

	// Unregistering the same id again is a no-op, not an error.
	removed, err = registry.Unregister(ctx, endpoint.ID)
	if err != nil {
		t.Fatalf("Unregister() second call error = %v", err)
	}
	if removed {
		t.Error("Unregister() = true for already-removed endpoint")
	}

	if _, err := registry.Get(ctx, endpoint.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() after unregister error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryRegistryGetReturnsCopy(t *testing.T) {
	t.Parallel()

	registry := NewInMemoryRegistry()
	ctx := context.Background()

	endpoint, err := registry.Register(ctx,
		"https://example.com/hook",
		[]domain.EventKind{domain.EventTrialExpiring},
		"s3cr3t",
	)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := registry.Get(ctx, endpoint.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	got.Enabled = false
	got.Timeout = time.Minute

	again, err := registry.Get(ctx, endpoint.ID)
	if err != nil {
		t.Fatalf("Get() second call error = %v", err)
	}
	if !again.Enabled {
		t.Error("mutation of returned endpoint leaked into registry")
	}
}
