package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cyperhq/integration-engine/internal/domain"
	"github.com/cyperhq/integration-engine/internal/observability"
)

const (
	defaultDeliveryLimit = 100
	maxDeliveryLimit     = 500
)

// WebhookService is the endpoint registry and delivery log surface
// exposed over HTTP.
type WebhookService interface {
	Register(ctx context.Context, url string, events []domain.EventKind, secret string) (*domain.Endpoint, error)
	Unregister(ctx context.Context, endpointID string) (bool, error)
	Get(ctx context.Context, endpointID string) (*domain.Endpoint, error)
	List(ctx context.Context) ([]domain.Endpoint, error)
	DeliveryLogs(ctx context.Context, endpointID string, limit int) ([]domain.DeliveryAttempt, error)
}

type WebhookHandler struct {
	service WebhookService
}

func NewWebhookHandler(service WebhookService) (*WebhookHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("webhook service is required")
	}
	return &WebhookHandler{service: service}, nil
}

func RegisterWebhookRoutes(router fiber.Router, service WebhookService) error {
	h, err := NewWebhookHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/webhooks", h.RegisterEndpoint)
	v1.Get("/webhooks", h.ListEndpoints)
	v1.Get("/webhooks/:id", h.GetEndpoint)
	v1.Delete("/webhooks/:id", h.UnregisterEndpoint)
	v1.Get("/webhooks/:id/deliveries", h.EndpointDeliveries)
	v1.Get("/deliveries", h.AllDeliveries)

	return nil
}

type registerWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

// endpointResponse deliberately omits the signing secret.
type endpointResponse struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Events     []string  `json:"events"`
	Enabled    bool      `json:"enabled"`
	RetryCount int       `json:"retryCount"`
	TimeoutSec int       `json:"timeoutSeconds"`
	CreatedAt  time.Time `json:"createdAt"`
}

type deliveryAttemptResponse struct {
	ID         string    `json:"id"`
	EndpointID string    `json:"endpointId"`
	Event      string    `json:"event"`
	StatusCode *int      `json:"statusCode,omitempty"`
	Success    bool      `json:"success"`
	Attempt    int       `json:"attempt"`
	Error      *string   `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (h *WebhookHandler) RegisterEndpoint(c *fiber.Ctx) error {
	var req registerWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	events := make([]domain.EventKind, 0, len(req.Events))
	for _, raw := range req.Events {
		kind, err := domain.ParseEventKindFromString(raw)
		if err != nil {
			return toHTTPError(err)
		}
		events = append(events, kind)
	}

	endpoint, err := h.service.Register(requestContext(c), req.URL, events, req.Secret)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(endpointToResponse(endpoint))
}

func (h *WebhookHandler) ListEndpoints(c *fiber.Ctx) error {
	endpoints, err := h.service.List(requestContext(c))
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]endpointResponse, 0, len(endpoints))
	for i := range endpoints {
		responses = append(responses, endpointToResponse(&endpoints[i]))
	}
	return c.JSON(fiber.Map{"data": responses})
}

func (h *WebhookHandler) GetEndpoint(c *fiber.Ctx) error {
	endpoint, err := h.service.Get(requestContext(c), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(endpointToResponse(endpoint))
}

func (h *WebhookHandler) UnregisterEndpoint(c *fiber.Ctx) error {
	removed, err := h.service.Unregister(requestContext(c), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (h *WebhookHandler) EndpointDeliveries(c *fiber.Ctx) error {
	// The endpoint must exist even if it has no attempts yet.
	if _, err := h.service.Get(requestContext(c), c.Params("id")); err != nil {
		return toHTTPError(err)
	}

	attempts, err := h.service.DeliveryLogs(requestContext(c), c.Params("id"), deliveryLimit(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"data": attemptsToResponse(attempts)})
}

func (h *WebhookHandler) AllDeliveries(c *fiber.Ctx) error {
	attempts, err := h.service.DeliveryLogs(requestContext(c), "", deliveryLimit(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"data": attemptsToResponse(attempts)})
}

// requestContext carries the request id from the requestid middleware
// into the service layer for log correlation.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if value, ok := c.Locals("requestid").(string); ok {
		return observability.WithRequestID(ctx, value)
	}
	return ctx
}

func deliveryLimit(c *fiber.Ctx) int {
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultDeliveryLimit)))
	if err != nil || limit <= 0 {
		return defaultDeliveryLimit
	}
	if limit > maxDeliveryLimit {
		return maxDeliveryLimit
	}
	return limit
}

func endpointToResponse(endpoint *domain.Endpoint) endpointResponse {
	events := make([]string, 0, len(endpoint.Events))
	for _, kind := range endpoint.Events {
		events = append(events, kind.String())
	}

	return endpointResponse{
		ID:         endpoint.ID,
		URL:        endpoint.URL,
		Events:     events,
		Enabled:    endpoint.Enabled,
		RetryCount: endpoint.RetryCount,
		TimeoutSec: int(endpoint.Timeout / time.Second),
		CreatedAt:  endpoint.CreatedAt,
	}
}

func attemptsToResponse(attempts []domain.DeliveryAttempt) []deliveryAttemptResponse {
	responses := make([]deliveryAttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, deliveryAttemptResponse{
			ID:         attempt.ID,
			EndpointID: attempt.EndpointID,
			Event:      attempt.EventKind.String(),
			StatusCode: attempt.StatusCode,
			Success:    attempt.Success,
			Attempt:    attempt.Attempt,
			Error:      attempt.Error,
			CreatedAt:  attempt.CreatedAt,
		})
	}
	return responses
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
