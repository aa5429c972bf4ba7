package controllers

import (
	"context"
	"time"

	"go-order-graphql/src/infrastructure/log"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 2 * time.Second

// Pinger checks that the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	pinger  Pinger
	logger  log.Logger
	timeout time.Duration
}

func NewHealthController(pinger Pinger, logger log.Logger) *HealthController {
	return &HealthController{pinger: pinger, logger: logger, timeout: healthTimeout}
}

func (c *HealthController) Route(app *fiber.App) {
	app.Get("/health", c.Health)
	app.Get("/health/live", c.Live)
}

// Health godoc
// @Summary      Readiness check
// @Description  Pings MongoDB and reports whether the service can serve requests
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (c *HealthController) Health(ctx *fiber.Ctx) error {
	pingCtx, cancel := context.WithTimeout(ctx.UserContext(), c.timeout)
	defer cancel()

	if err := c.pinger.Ping(pingCtx); err != nil {
		c.logger.Exception(ctx.UserContext(), "Health check: MongoDB ping failed", err)
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy"})
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
}

// Live godoc
// @Summary      Liveness check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health/live [get]
func (c *HealthController) Live(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "alive"})
}
