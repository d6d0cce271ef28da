package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RegisterHealthRoutes exposes liveness and readiness probes. Both
// dependencies are optional; a nil dependency is skipped in readiness.
func RegisterHealthRoutes(router fiber.Router, sqlDB *sql.DB, rdb redis.UniversalClient) {
	router.Get("/livez", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	router.Get("/readyz", func(c *fiber.Ctx) error {
		if sqlDB != nil {
			if err := sqlDB.PingContext(c.Context()); err != nil {
				return fiber.NewError(fiber.StatusServiceUnavailable, "database unavailable")
			}
		}
		if rdb != nil {
			if err := rdb.Ping(c.Context()).Err(); err != nil {
				return fiber.NewError(fiber.StatusServiceUnavailable, "redis unavailable")
			}
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})
}
