// Package analytics tracks product usage events and aggregates
// engagement metrics. Events are held in memory; the store is a
// process-lifetime buffer, not durable history.
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cyperhq/integration-engine/internal/domain"
)

// Category groups analytics events by product area.
type Category string

const (
	CategoryUser        Category = "user"
	CategoryScan        Category = "scan"
	CategoryBilling     Category = "billing"
	CategoryIntegration Category = "integration"
	CategoryReport      Category = "report"
	CategoryTeam        Category = "team"
)

func (c Category) String() string { return string(c) }

func (c Category) IsValid() bool {
	switch c {
	case CategoryUser, CategoryScan, CategoryBilling,
		CategoryIntegration, CategoryReport, CategoryTeam:
		return true
	}
	return false
}

func ParseCategoryFromString(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: invalid analytics category %q", domain.ErrValidation, s)
	}
	return c, nil
}

// Event is one tracked user action.
type Event struct {
	UserID     string         `json:"user_id"`
	EventName  string         `json:"event_name"`
	Category   Category       `json:"category"`
	Properties map[string]any `json:"properties"`
	Timestamp  time.Time      `json:"timestamp"`
	SessionID  string         `json:"session_id,omitempty"`
}

// Service records and queries analytics events. Methods are safe for
// concurrent use.
type Service struct {
	mu      sync.RWMutex
	events  []Event
	enabled bool
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(enabled bool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		enabled: enabled,
		logger:  logger,
		now:     time.Now,
	}
}

// Track records one event. Disabled services drop events silently.
func (s *Service) Track(userID, eventName string, category Category, properties map[string]any, sessionID string) error {
	if !s.enabled {
		s.logger.Debug("analytics disabled, skipping event", zap.String("event", eventName))
		return nil
	}
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if eventName == "" {
		return fmt.Errorf("%w: event name is required", domain.ErrValidation)
	}
	if !category.IsValid() {
		return fmt.Errorf("%w: invalid analytics category %q", domain.ErrValidation, category)
	}
	if properties == nil {
		properties = map[string]any{}
	}

	event := Event{
		UserID:     userID,
		EventName:  eventName,
		Category:   category,
		Properties: properties,
		Timestamp:  s.now().UTC(),
		SessionID:  sessionID,
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()

	s.logger.Info("tracked event",
		zap.String("event", eventName),
		zap.String("userId", userID),
	)
	return nil
}

// Identify records user traits as a user_identified event.
func (s *Service) Identify(userID string, traits map[string]any) error {
	return s.Track(userID, "user_identified", CategoryUser, map[string]any{"traits": traits}, "")
}

// UserEvents returns a user's events newest-first, optionally filtered
// by category. An empty category matches all.
func (s *Service) UserEvents(userID string, category Category, limit int) []Event {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	matched := make([]Event, 0, limit)
	for _, event := range s.events {
		if event.UserID != userID {
			continue
		}
		if category != "" && event.Category != category {
			continue
		}
		matched = append(matched, event)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// EventCount counts occurrences of eventName within [start, end]. Zero
// bounds are open.
func (s *Service) EventCount(eventName string, start, end time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, event := range s.events {
		if event.EventName != eventName {
			continue
		}
		if !start.IsZero() && event.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && event.Timestamp.After(end) {
			continue
		}
		count++
	}
	return count
}

// snapshot returns a copy of all events for aggregation.
func (s *Service) snapshot() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]Event, len(s.events))
	copy(events, s.events)
	return events
}

// TrackUserSignup records a signup event.
func TrackUserSignup(s *Service, userID string, properties map[string]any) error {
	return s.Track(userID, "user_signed_up", CategoryUser, properties, "")
}

// TrackScanCreated records a scan creation event.
func TrackScanCreated(s *Service, userID, scanType string) error {
	return s.Track(userID, "scan_created", CategoryScan, map[string]any{"scan_type": scanType}, "")
}

// TrackScanCompleted records a scan completion event.
func TrackScanCompleted(s *Service, userID string, scanData map[string]any) error {
	return s.Track(userID, "scan_completed", CategoryScan, scanData, "")
}

// TrackSubscriptionCreated records a subscription event.
func TrackSubscriptionCreated(s *Service, userID, plan string) error {
	return s.Track(userID, "subscription_created", CategoryBilling, map[string]any{"plan": plan}, "")
}

// TrackIntegrationConnected records an integration connection event.
func TrackIntegrationConnected(s *Service, userID, integration string) error {
	return s.Track(userID, "integration_connected", CategoryIntegration, map[string]any{"integration": integration}, "")
}
