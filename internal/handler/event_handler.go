package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/cyperhq/integration-engine/internal/domain"
	"github.com/cyperhq/integration-engine/internal/service"
)

type EventHandler struct {
	events service.EventEmitter
	scans  *service.ScanService
}

func NewEventHandler(events service.EventEmitter, scans *service.ScanService) (*EventHandler, error) {
	if events == nil {
		return nil, fmt.Errorf("event emitter is required")
	}
	return &EventHandler{events: events, scans: scans}, nil
}

func RegisterEventRoutes(router fiber.Router, events service.EventEmitter, scans *service.ScanService) error {
	h, err := NewEventHandler(events, scans)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/events", h.EmitEvent)
	if scans != nil {
		v1.Post("/scans", h.RunScan)
	}

	return nil
}

type emitEventRequest struct {
	Event   string         `json:"event"`
	Payload domain.Payload `json:"payload"`
}

type runScanRequest struct {
	Target string `json:"target"`
}

// EmitEvent enqueues the event for asynchronous fan-out and answers
// immediately.
func (h *EventHandler) EmitEvent(c *fiber.Ctx) error {
	var req emitEventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	kind, err := domain.ParseEventKindFromString(req.Event)
	if err != nil {
		return toHTTPError(err)
	}

	eventID, err := h.events.Emit(requestContext(c), kind, req.Payload)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"eventId": eventID})
}

// RunScan runs the active testers synchronously and returns the
// report. Scan events stream to webhook subscribers as side effects.
func (h *EventHandler) RunScan(c *fiber.Ctx) error {
	var req runScanRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	report, err := h.scans.Scan(requestContext(c), req.Target)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(report)
}
