package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		})
	}
}

// ReadyHandler checks DEM, DB, NATS, and cache availability.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		// DEM — the service is useless without elevation data
		if deps.DEM != nil {
			if _, err := deps.DEM.Bounds(ctx); err != nil {
				checks["dem"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["dem"] = "ok"
			}
		} else {
			checks["dem"] = "not configured"
			allOK = false
		}

		// Database
		if deps.DB != nil {
			if err := deps.DB.Pool.Ping(ctx); err != nil {
				checks["database"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["database"] = "ok"
			}
		} else {
			checks["database"] = "not configured"
		}

		// NATS
		if deps.NATS != nil {
			if deps.NATS.IsConnected() {
				checks["nats"] = "ok"
			} else {
				checks["nats"] = "disconnected"
				allOK = false
			}
		} else {
			checks["nats"] = "not configured"
		}

		// Valkey cache
		if deps.Cache != nil {
			if err := deps.Cache.Ping(ctx); err != nil {
				checks["cache"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["cache"] = "ok"
			}
		} else {
			checks["cache"] = "not configured"
		}

		status := "ready"
		code := 200
		if !allOK {
			status = "not ready"
			code = 503
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
