package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Statuses lists every lifecycle state in declaration order.
var Statuses = []Status{StatusPlaced, StatusPaid, StatusShipped, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

// Item is a line of an order. Items have no identity of their own.
type Item struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Subtotal is quantity times unit price.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID                   uuid.UUID  `json:"id"`
	Status               Status     `json:"status"`
	Items                []Item     `json:"items"`
	CustomerID           *uuid.UUID `json:"customerId,omitempty"`
	ShipmentAddressID    *uuid.UUID `json:"shipmentAddressId,omitempty"`
	InvoiceAddressID     *uuid.UUID `json:"invoiceAddressId,omitempty"`
	PaymentInformationID *uuid.UUID `json:"paymentInformationId,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Total sums the subtotals of all items.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// OrderPatch carries the mutable fields of an update. Nil fields are left
// untouched; id and createdAt are deliberately absent.
type OrderPatch struct {
	Status               *Status
	Items                []Item
	ReplaceItems         bool
	CustomerID           *uuid.UUID
	ShipmentAddressID    *uuid.UUID
	InvoiceAddressID     *uuid.UUID
	PaymentInformationID *uuid.UUID

	// ExpectedStatus makes the write conditional: a store applies the patch
	// only while the order is still in this status and otherwise returns a
	// ConcurrentUpdateError.
	ExpectedStatus *Status
}

// Empty reports whether the patch changes nothing.
func (p OrderPatch) Empty() bool {
	return p.Status == nil && !p.ReplaceItems && p.CustomerID == nil &&
		p.ShipmentAddressID == nil && p.InvoiceAddressID == nil && p.PaymentInformationID == nil
}

// Apply returns a copy of o with the patch applied and updatedAt advanced to
// now, never backwards.
func (p OrderPatch) Apply(o Order, now time.Time) Order {
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.ReplaceItems {
		o.Items = append([]Item(nil), p.Items...)
	}
	if p.CustomerID != nil {
		o.CustomerID = p.CustomerID
	}
	if p.ShipmentAddressID != nil {
		o.ShipmentAddressID = p.ShipmentAddressID
	}
	if p.InvoiceAddressID != nil {
		o.InvoiceAddressID = p.InvoiceAddressID
	}
	if p.PaymentInformationID != nil {
		o.PaymentInformationID = p.PaymentInformationID
	}
	if now.After(o.UpdatedAt) {
		o.UpdatedAt = now
	}
	return o
}

type SortDirection int

const (
	SortAscending  SortDirection = 1
	SortDescending SortDirection = -1
)

// SortField is the attribute a listing is ordered by. Ties are broken by id.
type SortField string

const (
	SortByCreatedAt SortField = "CREATED_AT"
	SortByUpdatedAt SortField = "UPDATED_AT"
	SortByID        SortField = "ID"
)

var SortFields = []SortField{SortByCreatedAt, SortByUpdatedAt, SortByID}

func (f SortField) Valid() bool {
	for _, known := range SortFields {
		if f == known {
			return true
		}
	}
	return false
}

// ListFilter selects and pages orders. Results are ordered by SortField
// (createdAt when empty) and then id, so pages are reproducible while other
// documents change.
type ListFilter struct {
	Statuses      []Status
	CustomerID    *uuid.UUID
	ProductID     *uuid.UUID
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Skip          int64
	Limit         int64
	Direction     SortDirection
	SortField     SortField
}

// OrderPage is one page of a listing.
type OrderPage struct {
	Orders      []Order
	HasNextPage bool
	TotalCount  int64
}
