package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultRetryCount = 3
	DefaultTimeout    = 10 * time.Second
)

// Endpoint is a registered webhook destination with its own secret,
// subscriptions, and retry policy. Endpoints are immutable after
// registration except for the enabled flag.
type Endpoint struct {
	ID         string      `gorm:"type:uuid;primaryKey"`
	URL        string      `gorm:"type:varchar(2048);not null"`
	Events     []EventKind `gorm:"-"`
	Secret     string      `gorm:"type:varchar(255);not null"`
	Enabled    bool        `gorm:"not null;default:true"`
	RetryCount int         `gorm:"not null;default:3"`
	Timeout    time.Duration
	CreatedAt  time.Time
}

// NewEndpoint constructs an endpoint with a fresh identifier and the
// default enabled/retry/timeout settings.
func NewEndpoint(rawURL string, events []EventKind, secret string) (*Endpoint, error) {
	e := &Endpoint{
		ID:         uuid.NewString(),
		URL:        strings.TrimSpace(rawURL),
		Events:     events,
		Secret:     secret,
		Enabled:    true,
		RetryCount: DefaultRetryCount,
		Timeout:    DefaultTimeout,
		CreatedAt:  time.Now().UTC(),
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Endpoint) Validate() error {
	parsed, err := url.Parse(e.URL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Errorf("%w: url must be an absolute HTTP(S) URL", ErrValidation)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: unsupported url scheme %q", ErrValidation, parsed.Scheme)
	}
	if len(e.Events) == 0 {
		return fmt.Errorf("%w: at least one event subscription is required", ErrValidation)
	}
	for _, kind := range e.Events {
		if !kind.IsValid() {
			return fmt.Errorf("%w: invalid event kind %q", ErrValidation, kind)
		}
	}
	if e.RetryCount < 1 {
		return fmt.Errorf("%w: retry count must be >= 1", ErrValidation)
	}
	if e.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrValidation)
	}
	return nil
}

// Subscribes reports whether the endpoint is subscribed to the kind.
func (e *Endpoint) Subscribes(kind EventKind) bool {
	for _, k := range e.Events {
		if k == kind {
			return true
		}
	}
	return false
}
