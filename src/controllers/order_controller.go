package controllers

import (
	"context"

	"go-order-graphql/src/services/events"

	"github.com/gofiber/fiber/v2"
)

// EventReplayer republishes order events whose first publication failed.
type EventReplayer interface {
	ReplayFailedEvents(ctx context.Context) (events.ReplayResult, error)
}

type OrderController struct {
	replayer EventReplayer
}

func NewOrderController(replayer EventReplayer) *OrderController {
	return &OrderController{replayer: replayer}
}

func (c *OrderController) Route(app *fiber.App) {
	api := app.Group("/api/v1/orders")
	api.Post("/replay-failed-events", c.ReplayFailedEvents)
}

// ReplayFailedEvents godoc
// @Summary      Replay failed order events
// @Description  Replays order events that could not be published to the broker
// @Tags         orders
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /api/v1/orders/replay-failed-events [post]
func (c *OrderController) ReplayFailedEvents(ctx *fiber.Ctx) error {
	result, err := c.replayer.ReplayFailedEvents(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error(), "result": result})
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "Replay complete", "result": result})
}
