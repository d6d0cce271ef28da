package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cyperhq/integration-engine/internal/analytics"
)

type AnalyticsHandler struct {
	analytics *analytics.Service
	collector *analytics.Collector
}

func NewAnalyticsHandler(service *analytics.Service, collector *analytics.Collector) (*AnalyticsHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("analytics service is required")
	}
	if collector == nil {
		collector = analytics.NewCollector(service)
	}
	return &AnalyticsHandler{analytics: service, collector: collector}, nil
}

func RegisterAnalyticsRoutes(router fiber.Router, service *analytics.Service, collector *analytics.Collector) error {
	h, err := NewAnalyticsHandler(service, collector)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/analytics/events", h.TrackEvent)
	v1.Get("/analytics/users/:userId/events", h.UserEvents)
	v1.Get("/analytics/summary", h.Summary)

	return nil
}

type trackEventRequest struct {
	UserID     string         `json:"userId"`
	EventName  string         `json:"eventName"`
	Category   string         `json:"category"`
	Properties map[string]any `json:"properties"`
	SessionID  string         `json:"sessionId"`
}

func (h *AnalyticsHandler) TrackEvent(c *fiber.Ctx) error {
	var req trackEventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	category, err := analytics.ParseCategoryFromString(req.Category)
	if err != nil {
		return toHTTPError(err)
	}

	if err := h.analytics.Track(req.UserID, req.EventName, category, req.Properties, req.SessionID); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *AnalyticsHandler) UserEvents(c *fiber.Ctx) error {
	var category analytics.Category
	if raw := c.Query("category"); raw != "" {
		parsed, err := analytics.ParseCategoryFromString(raw)
		if err != nil {
			return toHTTPError(err)
		}
		category = parsed
	}

	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	events := h.analytics.UserEvents(c.Params("userId"), category, limit)
	return c.JSON(fiber.Map{"data": events})
}

// Summary reports DAU/WAU/MAU for the current day.
func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	now := time.Now().UTC()
	return c.JSON(fiber.Map{
		"dailyActiveUsers":   h.collector.DailyActiveUsers(now),
		"weeklyActiveUsers":  h.collector.WeeklyActiveUsers(now),
		"monthlyActiveUsers": h.collector.MonthlyActiveUsers(now),
	})
}
