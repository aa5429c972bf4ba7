package persistence

import (
	"fmt"
	"time"

	"go-order-graphql/src/services/order/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentSchemaVersion is written on every insert. Version 1 documents
// predate status tracking and updated_at.
const currentSchemaVersion = 2

// OrderDocument is the storage model for MongoDB
type OrderDocument struct {
	ID                   string         `bson:"_id"`
	SchemaVersion        int            `bson:"schema_version"`
	Status               string         `bson:"status,omitempty"`
	Items                []ItemDocument `bson:"items"`
	CustomerID           *string        `bson:"customer_id,omitempty"`
	ShipmentAddressID    *string        `bson:"shipment_address_id,omitempty"`
	InvoiceAddressID     *string        `bson:"invoice_address_id,omitempty"`
	PaymentInformationID *string        `bson:"payment_information_id,omitempty"`
	CreatedAt            time.Time      `bson:"created_at"`
	UpdatedAt            time.Time      `bson:"updated_at"`
}

type ItemDocument struct {
	ProductID string               `bson:"product_id"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
}

func toDocument(o domain.Order) (OrderDocument, error) {
	items, err := toItemDocuments(o.Items)
	if err != nil {
		return OrderDocument{}, err
	}
	return OrderDocument{
		ID:                   o.ID.String(),
		SchemaVersion:        currentSchemaVersion,
		Status:               o.Status.String(),
		Items:                items,
		CustomerID:           idString(o.CustomerID),
		ShipmentAddressID:    idString(o.ShipmentAddressID),
		InvoiceAddressID:     idString(o.InvoiceAddressID),
		PaymentInformationID: idString(o.PaymentInformationID),
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}, nil
}

func toItemDocuments(items []domain.Item) ([]ItemDocument, error) {
	docs := make([]ItemDocument, 0, len(items))
	for _, item := range items {
		price, err := primitive.ParseDecimal128(item.Price.String())
		if err != nil {
			return nil, fmt.Errorf("failed to encode price %s: %w", item.Price, err)
		}
		docs = append(docs, ItemDocument{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			Price:     price,
		})
	}
	return docs, nil
}

// normalize fills the defaults of fields older schema versions lack.
func (d *OrderDocument) normalize() {
	if d.SchemaVersion == 0 {
		d.SchemaVersion = 1
	}
	if d.Status == "" {
		d.Status = domain.StatusPlaced.String()
	}
	if d.Items == nil {
		d.Items = []ItemDocument{}
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
}

func (d OrderDocument) toDomain() (domain.Order, error) {
	d.normalize()

	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("corrupt order id %q: %w", d.ID, err)
	}
	status := domain.Status(d.Status)
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("corrupt status %q on order %s", d.Status, d.ID)
	}

	items := make([]domain.Item, 0, len(d.Items))
	for _, doc := range d.Items {
		productID, err := uuid.Parse(doc.ProductID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("corrupt product id %q on order %s: %w", doc.ProductID, d.ID, err)
		}
		price, err := decimal.NewFromString(doc.Price.String())
		if err != nil {
			return domain.Order{}, fmt.Errorf("corrupt price on order %s: %w", d.ID, err)
		}
		items = append(items, domain.Item{ProductID: productID, Quantity: doc.Quantity, Price: price})
	}

	order := domain.Order{
		ID:        id,
		Status:    status,
		Items:     items,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	refs := []struct {
		raw *string
		dst **uuid.UUID
	}{
		{d.CustomerID, &order.CustomerID},
		{d.ShipmentAddressID, &order.ShipmentAddressID},
		{d.InvoiceAddressID, &order.InvoiceAddressID},
		{d.PaymentInformationID, &order.PaymentInformationID},
	}
	for _, ref := range refs {
		if ref.raw == nil {
			continue
		}
		parsed, err := uuid.Parse(*ref.raw)
		if err != nil {
			return domain.Order{}, fmt.Errorf("corrupt reference %q on order %s: %w", *ref.raw, d.ID, err)
		}
		*ref.dst = &parsed
	}
	return order, nil
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
