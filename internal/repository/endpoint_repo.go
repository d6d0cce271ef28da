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

// GormEndpointRepo is a postgres-backed endpoint registry.
type GormEndpointRepo struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ webhook.Registry = (*GormEndpointRepo)(nil)

func NewGormEndpointRepo(db *gorm.DB, logger *zap.Logger) (*GormEndpointRepo, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GormEndpointRepo{db: db, logger: logger}, nil
}

func (r *GormEndpointRepo) Register(ctx context.Context, rawURL string, events []domain.EventKind, secret string) (*domain.Endpoint, error) {
	endpoint, err := domain.NewEndpoint(rawURL, events, secret)
	if err != nil {
		return nil, err
	}

	model, err := endpointModelFromDomain(endpoint)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to create endpoint: %w", err)
	}

	r.logger.Info("endpoint registered",
		zap.String("endpoint_id", endpoint.ID),
		zap.String("url", endpoint.URL))

	return endpoint, nil
}

func (r *GormEndpointRepo) Unregister(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("%w: endpoint id is required", domain.ErrValidation)
	}

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&EndpointModel{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete endpoint: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *GormEndpointRepo) Get(ctx context.Context, id string) (*domain.Endpoint, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: endpoint id is required", domain.ErrValidation)
	}

	var model EndpointModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: endpoint %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load endpoint: %w", err)
	}

	return endpointModelToDomain(&model)
}

func (r *GormEndpointRepo) List(ctx context.Context) ([]domain.Endpoint, error) {
	var models []EndpointModel
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}

	endpoints := make([]domain.Endpoint, 0, len(models))
	for i := range models {
		endpoint, err := endpointModelToDomain(&models[i])
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, *endpoint)
	}

	return endpoints, nil
}
