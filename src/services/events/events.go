package events

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	// Topics published through the sidecar pub/sub component
	OrderCreated = "order/order/created"
	OrderUpdated = "order/order/updated"
	OrderDeleted = "order/order/deleted"

	// Event status enums for order_events collection
	EventStatusPending   = "pending"   // Event is waiting to be processed
	EventStatusFailed    = "failed"    // Event publishing failed, needs replay
	EventStatusCompleted = "completed" // Event was successfully published
	EventStatusReplaying = "replaying" // Event is currently being replayed
)

// Event is a serialized order event ready to be published on a topic.
type Event struct {
	Topic   string
	OrderID string
	Data    []byte
}

// NewEvent marshals payload as the event body.
func NewEvent(topic, orderID string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	evt := Event{Topic: topic, OrderID: orderID, Data: data}
	if err := evt.Validate(); err != nil {
		return Event{}, err
	}
	return evt, nil
}

func (e *Event) Validate() error {
	if e.Topic == "" || e.OrderID == "" {
		return errors.New("missing required fields in Event")
	}
	if !json.Valid(e.Data) {
		return errors.New("invalid JSON event data")
	}
	return nil
}

// OrderItemDTO is the wire form of an order line.
type OrderItemDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// OrderDTO is the payload of order created and updated events.
type OrderDTO struct {
	ID                   string         `json:"id"`
	Status               string         `json:"status"`
	Items                []OrderItemDTO `json:"items"`
	Total                string         `json:"total"`
	CustomerID           string         `json:"customerId,omitempty"`
	ShipmentAddressID    string         `json:"shipmentAddressId,omitempty"`
	InvoiceAddressID     string         `json:"invoiceAddressId,omitempty"`
	PaymentInformationID string         `json:"paymentInformationId,omitempty"`
	Version              int            `json:"version"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// OrderDeletedDTO is the payload of order deleted events.
type OrderDeletedDTO struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	DeletedAt time.Time `json:"deletedAt"`
}

// StoredEvent is an event persisted for later replay.
type StoredEvent struct {
	ID         string     `bson:"_id,omitempty"`
	OrderID    string     `bson:"orderId"`
	Topic      string     `bson:"topic"`
	EventData  []byte     `bson:"eventData"`
	CreatedAt  time.Time  `bson:"createdAt"`
	Replayed   bool       `bson:"replayed"`
	ReplayedAt *time.Time `bson:"replayedAt,omitempty"`
	Status     string     `bson:"status"`
}
