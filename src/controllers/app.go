package controllers

import (
	"net/http"

	"go-order-graphql/src/infrastructure/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberSwagger "github.com/swaggo/fiber-swagger"
)

// Router registers its routes on the app.
type Router interface {
	Route(app *fiber.App)
}

// NewApp returns the fiber app with the shared middleware installed and the
// routers, swagger UI and metrics endpoint registered. metrics may be nil.
func NewApp(logger log.Logger, metrics http.Handler, routers ...Router) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadBufferSize:  81920,
		WriteBufferSize: 81920,
		ServerHeader:    "Order-GraphQL-Service",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				logger.Exception(c.UserContext(), "HTTP request error", err)
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(RequestLogger(logger))
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/api/swagger/*", fiberSwagger.WrapHandler)
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}
	for _, r := range routers {
		r.Route(app)
	}
	return app
}
