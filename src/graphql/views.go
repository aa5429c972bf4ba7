package graphql

import (
	"fmt"
	"time"

	"go-order-graphql/src/services/order/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func orderView(o domain.Order) map[string]interface{} {
	items := make([]interface{}, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, map[string]interface{}{
			"productId": item.ProductID.String(),
			"quantity":  item.Quantity,
			"price":     item.Price.InexactFloat64(),
			"subtotal":  item.Subtotal().InexactFloat64(),
		})
	}
	return map[string]interface{}{
		"id":                   o.ID.String(),
		"status":               o.Status.String(),
		"items":                items,
		"total":                o.Total().InexactFloat64(),
		"customerId":           optionalID(o.CustomerID),
		"shipmentAddressId":    optionalID(o.ShipmentAddressID),
		"invoiceAddressId":     optionalID(o.InvoiceAddressID),
		"paymentInformationId": optionalID(o.PaymentInformationID),
		"createdAt":            o.CreatedAt,
		"updatedAt":            o.UpdatedAt,
	}
}

func orderViews(orders []domain.Order) []interface{} {
	views := make([]interface{}, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderView(o))
	}
	return views
}

func optionalID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

// Argument decoding. The executor has already coerced values to the schema
// types, so only shapes are checked here.

func createInput(raw interface{}) (domain.CreateOrderInput, error) {
	args, _ := raw.(map[string]interface{})
	items, err := itemInputs(args["items"])
	if err != nil {
		return domain.CreateOrderInput{}, err
	}
	return domain.CreateOrderInput{
		Items:                items,
		CustomerID:           optionalString(args, "customerId"),
		ShipmentAddressID:    optionalString(args, "shipmentAddressId"),
		InvoiceAddressID:     optionalString(args, "invoiceAddressId"),
		PaymentInformationID: optionalString(args, "paymentInformationId"),
	}, nil
}

func updateInput(raw interface{}) (domain.UpdateOrderInput, error) {
	args, _ := raw.(map[string]interface{})
	input := domain.UpdateOrderInput{
		ID:                   optionalString(args, "id"),
		CreatedAt:            optionalString(args, "createdAt"),
		CustomerID:           optionalString(args, "customerId"),
		ShipmentAddressID:    optionalString(args, "shipmentAddressId"),
		InvoiceAddressID:     optionalString(args, "invoiceAddressId"),
		PaymentInformationID: optionalString(args, "paymentInformationId"),
	}
	if s, ok := args["status"].(string); ok {
		status := domain.Status(s)
		input.Status = &status
	}
	if rawItems, ok := args["items"]; ok && rawItems != nil {
		items, err := itemInputs(rawItems)
		if err != nil {
			return input, err
		}
		input.Items = &items
	}
	return input, nil
}

func listInput(raw interface{}) domain.ListOrdersInput {
	input := domain.ListOrdersInput{Direction: domain.SortAscending}
	args, ok := raw.(map[string]interface{})
	if !ok {
		return input
	}

	if statuses, ok := args["status"].([]interface{}); ok {
		for _, s := range statuses {
			str, _ := s.(string)
			input.Statuses = append(input.Statuses, domain.Status(str))
		}
	}
	input.CustomerID = optionalString(args, "customerId")
	input.ProductID = optionalString(args, "productId")
	input.CreatedAfter = optionalTime(args, "createdAfter")
	input.CreatedBefore = optionalTime(args, "createdBefore")
	input.First = optionalInt(args, "first")
	input.Skip = optionalInt(args, "skip")
	if field, ok := args["orderBy"].(string); ok {
		input.SortField = domain.SortField(field)
	}
	if args["direction"] == "DESC" {
		input.Direction = domain.SortDescending
	}
	return input
}

func itemInputs(raw interface{}) ([]domain.ItemInput, error) {
	list, _ := raw.([]interface{})
	items := make([]domain.ItemInput, 0, len(list))
	for i, entry := range list {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("items[%d]", i), Reason: "must be an object"}
		}
		productID, _ := fields["productId"].(string)
		quantity, _ := fields["quantity"].(int)
		price, ok := fields["price"].(float64)
		if !ok {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("items[%d].price", i), Reason: "must be a number"}
		}
		items = append(items, domain.ItemInput{
			ProductID: productID,
			Quantity:  quantity,
			Price:     decimal.NewFromFloat(price),
		})
	}
	return items, nil
}

func optionalString(args map[string]interface{}, key string) *string {
	s, ok := args[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func optionalInt(args map[string]interface{}, key string) *int {
	n, ok := args[key].(int)
	if !ok {
		return nil
	}
	return &n
}

func optionalTime(args map[string]interface{}, key string) *time.Time {
	t, ok := args[key].(time.Time)
	if !ok {
		return nil
	}
	return &t
}
