package dapr

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultTimeout = 5 * time.Second

// Publisher publishes events through the pub/sub API of a Dapr sidecar.
type Publisher struct {
	baseURL    string
	pubSubName string
}

// NewPublisher targets the sidecar on localhost at port.
func NewPublisher(port int, pubSubName string) *Publisher {
	return NewPublisherWithBaseURL(fmt.Sprintf("http://localhost:%d", port), pubSubName)
}

func NewPublisherWithBaseURL(baseURL, pubSubName string) *Publisher {
	return &Publisher{baseURL: baseURL, pubSubName: pubSubName}
}

// PublishURL is the sidecar endpoint for topic.
func (p *Publisher) PublishURL(topic string) string {
	return fmt.Sprintf("%s/v1.0/publish/%s/%s", p.baseURL, p.pubSubName, topic)
}

// Publish posts body as JSON to the sidecar. Any non 2xx answer is an error.
func (p *Publisher) Publish(ctx context.Context, topic string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	agent := fiber.Post(p.PublishURL(topic)).
		ContentType(fiber.MIMEApplicationJSON).
		Body(body).
		Timeout(timeout)

	status, resp, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("failed to reach dapr sidecar: %w", errs[0])
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return fmt.Errorf("dapr publish to %s returned %d: %s", topic, status, resp)
	}
	return nil
}
