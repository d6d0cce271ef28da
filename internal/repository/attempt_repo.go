package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cyperhq/integration-engine/internal/domain"
	"github.com/cyperhq/integration-engine/internal/webhook"
)

// GormDeliveryLog is a postgres-backed append-only delivery log.
type GormDeliveryLog struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ webhook.DeliveryLog = (*GormDeliveryLog)(nil)

func NewGormDeliveryLog(db *gorm.DB, logger *zap.Logger) (*GormDeliveryLog, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GormDeliveryLog{db: db, logger: logger}, nil
}

func (l *GormDeliveryLog) Record(ctx context.Context, attempt *domain.DeliveryAttempt) error {
	if attempt == nil {
		return fmt.Errorf("%w: delivery attempt is required", domain.ErrValidation)
	}

	model, err := attemptModelFromDomain(attempt)
	if err != nil {
		return err
	}

	if err := l.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}

	return nil
}

func (l *GormDeliveryLog) Query(ctx context.Context, endpointID string, limit int) ([]domain.DeliveryAttempt, error) {
	if limit <= 0 {
		limit = 100
	}

	query := l.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if endpointID != "" {
		query = query.Where("endpoint_id = ?", endpointID)
	}

	var models []DeliveryAttemptModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to query delivery attempts: %w", err)
	}

	attempts := make([]domain.DeliveryAttempt, 0, len(models))
	for i := range models {
		attempt, err := attemptModelToDomain(&models[i])
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *attempt)
	}

	return attempts, nil
}
