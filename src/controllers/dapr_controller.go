package controllers

import "github.com/gofiber/fiber/v2"

// DaprController answers the sidecar's discovery calls. The service
// publishes only, so it subscribes to nothing.
type DaprController struct{}

func NewDaprController() *DaprController {
	return &DaprController{}
}

func (c *DaprController) Route(app *fiber.App) {
	app.Get("/dapr/subscribe", c.Subscribe)
}

// Subscribe godoc
// @Summary      Dapr subscription discovery
// @Tags         dapr
// @Produce      json
// @Success      200  {array}  map[string]interface{}
// @Router       /dapr/subscribe [get]
func (c *DaprController) Subscribe(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusOK).JSON([]fiber.Map{})
}
