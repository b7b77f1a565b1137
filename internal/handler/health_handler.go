package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

// TemplateStatus reports whether the template cache holds a loaded snapshot.
type TemplateStatus interface {
	Loaded() bool
}

// BrokerStatus reports whether the consumer connection is up.
type BrokerStatus interface {
	Healthy() bool
}

// HealthDeps lists what /readyz checks. Redis, templates and broker are optional.
type HealthDeps struct {
	DB        *sql.DB
	Redis     *redis.Client
	Templates TemplateStatus
	Broker    BrokerStatus
}

func RegisterHealthRoutes(app fiber.Router, deps HealthDeps) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(deps))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

// ReadyzHandler fails only on hard dependencies. An unloaded template cache
// is reported as "pending" since notifications fall back to the layout.
func ReadyzHandler(deps HealthDeps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
		defer cancel()

		ready := true
		checks := fiber.Map{}

		if deps.DB == nil || deps.DB.PingContext(ctx) != nil {
			checks["postgres"] = "down"
			ready = false
		} else {
			checks["postgres"] = "ok"
		}

		switch {
		case deps.Redis == nil:
			checks["redis"] = "disabled"
		case deps.Redis.Ping(ctx).Err() != nil:
			checks["redis"] = "down"
			ready = false
		default:
			checks["redis"] = "ok"
		}

		if deps.Broker != nil {
			if deps.Broker.Healthy() {
				checks["rabbitmq"] = "ok"
			} else {
				checks["rabbitmq"] = "down"
				ready = false
			}
		}

		if deps.Templates != nil {
			if deps.Templates.Loaded() {
				checks["templates"] = "ok"
			} else {
				checks["templates"] = "pending"
			}
		}

		status := "ready"
		statusCode := fiber.StatusOK
		if !ready {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
