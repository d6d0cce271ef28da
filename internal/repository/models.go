package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cyperhq/integration-engine/internal/domain"
)

// EndpointModel is the persistence model for the webhook_endpoints table.
// Event subscriptions are stored as a JSON-encoded array.
type EndpointModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	URL            string `gorm:"type:varchar(2048);not null"`
	Events         string `gorm:"type:text;not null"`
	Secret         string `gorm:"type:varchar(255);not null"`
	Enabled        bool   `gorm:"not null;default:true"`
	RetryCount     int    `gorm:"not null;default:3"`
	TimeoutSeconds int    `gorm:"not null;default:10"`
	CreatedAt      time.Time
}

func (EndpointModel) TableName() string {
	return "webhook_endpoints"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID         string  `gorm:"type:uuid;primaryKey"`
	EndpointID string  `gorm:"type:uuid;not null"`
	EventKind  string  `gorm:"type:varchar(40);not null"`
	Payload    string  `gorm:"type:text"`
	StatusCode *int    `gorm:"type:int"`
	Success    bool    `gorm:"not null"`
	Attempt    int     `gorm:"not null"`
	Error      *string `gorm:"type:text"`
	CreatedAt  time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

func endpointModelFromDomain(e *domain.Endpoint) (*EndpointModel, error) {
	if e == nil {
		return nil, nil
	}

	events, err := json.Marshal(e.Events)
	if err != nil {
		return nil, fmt.Errorf("failed to encode endpoint events: %w", err)
	}

	return &EndpointModel{
		ID:             e.ID,
		URL:            e.URL,
		Events:         string(events),
		Secret:         e.Secret,
		Enabled:        e.Enabled,
		RetryCount:     e.RetryCount,
		TimeoutSeconds: int(e.Timeout / time.Second),
		CreatedAt:      e.CreatedAt,
	}, nil
}

func endpointModelToDomain(m *EndpointModel) (*domain.Endpoint, error) {
	if m == nil {
		return nil, nil
	}

	var events []domain.EventKind
	if m.Events != "" {
		if err := json.Unmarshal([]byte(m.Events), &events); err != nil {
			return nil, fmt.Errorf("failed to decode endpoint events: %w", err)
		}
	}

	return &domain.Endpoint{
		ID:         m.ID,
		URL:        m.URL,
		Events:     events,
		Secret:     m.Secret,
		Enabled:    m.Enabled,
		RetryCount: m.RetryCount,
		Timeout:    time.Duration(m.TimeoutSeconds) * time.Second,
		CreatedAt:  m.CreatedAt,
	}, nil
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) (*DeliveryAttemptModel, error) {
	if a == nil {
		return nil, nil
	}

	var payload string
	if a.Payload != nil {
		encoded, err := json.Marshal(a.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode attempt payload: %w", err)
		}
		payload = string(encoded)
	}

	return &DeliveryAttemptModel{
		ID:         a.ID,
		EndpointID: a.EndpointID,
		EventKind:  a.EventKind.String(),
		Payload:    payload,
		StatusCode: a.StatusCode,
		Success:    a.Success,
		Attempt:    a.Attempt,
		Error:      a.Error,
		CreatedAt:  a.CreatedAt,
	}, nil
}

func attemptModelToDomain(m *DeliveryAttemptModel) (*domain.DeliveryAttempt, error) {
	if m == nil {
		return nil, nil
	}

	var payload domain.Payload
	if m.Payload != "" {
		if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
			return nil, fmt.Errorf("failed to decode attempt payload: %w", err)
		}
	}

	return &domain.DeliveryAttempt{
		ID:         m.ID,
		EndpointID: m.EndpointID,
		EventKind:  domain.EventKind(m.EventKind),
		Payload:    payload,
		StatusCode: m.StatusCode,
		Success:    m.Success,
		Attempt:    m.Attempt,
		Error:      m.Error,
		CreatedAt:  m.CreatedAt,
	}, nil
}
