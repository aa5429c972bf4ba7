package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemInput is an unvalidated order line as received from a client.
type ItemInput struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

type CreateOrderInput struct {
	Items                []ItemInput
	CustomerID           *string
	ShipmentAddressID    *string
	InvoiceAddressID     *string
	PaymentInformationID *string
}

// UpdateOrderInput is an unvalidated patch. ID and CreatedAt are accepted only
// so that attempts to change them can be rejected with a field error.
type UpdateOrderInput struct {
	ID                   *string
	CreatedAt            *string
	Status               *Status
	Items                *[]ItemInput
	CustomerID           *string
	ShipmentAddressID    *string
	InvoiceAddressID     *string
	PaymentInformationID *string
}

type ListOrdersInput struct {
	Statuses       []Status
	CustomerID     *string
	ProductID      *string
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
	First          *int
	Skip           *int
	Direction      SortDirection
	SortField      SortField
	WithTotalCount bool
}
