package controllers

import (
	"time"

	"go-order-graphql/src/infrastructure/log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"
	maxLoggedBody       = 2048
)

// RequestLogger tags the request context with a correlation id, taken from
// the X-Correlation-ID header or generated, and logs every exchange once the
// handler returns.
func RequestLogger(logger log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		correlationID := c.Get(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		c.SetUserContext(logger.WithCorrelationID(c.UserContext(), correlationID))
		c.Set(CorrelationIDHeader, correlationID)

		err := c.Next()
		if err != nil {
			// let the app error handler decide the status before logging it
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logger.RequestResponse(c.UserContext(), &log.Field{
			URL:            c.OriginalURL(),
			HostName:       c.Hostname(),
			HTTPStatusCode: c.Response().StatusCode(),
			Duration:       time.Since(start).Milliseconds(),
			RequestBody:    truncate(c.Body()),
			ResponseBody:   truncate(c.Response().Body()),
			HTTPMethod:     c.Method(),
			Message:        "HTTP request completed",
		})
		return nil
	}
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "..."
	}
	return string(body)
}
