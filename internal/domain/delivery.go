package domain

import "time"

// DeliveryAttempt records a single HTTP delivery attempt for one
// (endpoint, event) pair. Attempts are immutable once recorded.
type DeliveryAttempt struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	EndpointID string    `gorm:"type:uuid;not null"`
	EventKind  EventKind `gorm:"type:varchar(40);not null"`
	Payload    Payload   `gorm:"-"`
	StatusCode *int      `gorm:"type:int"`
	Success    bool      `gorm:"not null"`
	Attempt    int       `gorm:"not null"`
	Error      *string   `gorm:"type:text"`
	CreatedAt  time.Time
}
