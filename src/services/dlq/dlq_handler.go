package dlq

import (
	"context"
	"encoding/json"
	"fmt"

	"go-order-graphql/src/infrastructure/log"
	"go-order-graphql/src/infrastructure/rabbitmq"
	"go-order-graphql/src/services/events"
)

const unknownOrderID = "unknown"

// Handler stores order events the broker dead-lettered so the replay
// endpoint can publish them again.
type Handler struct {
	eventLog events.EventLog
	logger   log.Logger
}

func NewHandler(eventLog events.EventLog, logger log.Logger) *Handler {
	return &Handler{eventLog: eventLog, logger: logger}
}

// Handle records one dead letter. routingKey is the key the event was
// originally published with.
func (h *Handler) Handle(ctx context.Context, routingKey string, body []byte) error {
	topic := rabbitmq.TopicFromRoutingKey(routingKey)
	if !json.Valid(body) {
		// never replayable; acknowledging drops it
		h.logger.WarnWithExtra(ctx, "Discarding dead letter with invalid JSON body", map[string]any{"topic": topic})
		return nil
	}

	// created, updated and deleted payloads all carry the order id
	var payload struct {
		ID string `json:"id"`
	}
	orderID := unknownOrderID
	if err := json.Unmarshal(body, &payload); err == nil && payload.ID != "" {
		orderID = payload.ID
	}

	evt := events.Event{Topic: topic, OrderID: orderID, Data: body}
	if err := h.eventLog.StoreEventForReplay(ctx, evt); err != nil {
		return fmt.Errorf("failed to store dead-lettered %s event for order %s: %w", topic, orderID, err)
	}
	h.logger.InfoWithExtra(ctx, "Dead-lettered event stored for replay", map[string]any{"topic": topic, "orderId": orderID})
	return nil
}
