package graphql

import (
	"go-order-graphql/src/services/order/domain"

	gql "github.com/graphql-go/graphql"
)

var orderStatusEnum = func() *gql.Enum {
	values := gql.EnumValueConfigMap{}
	for _, s := range domain.Statuses {
		values[s.String()] = &gql.EnumValueConfig{Value: s.String()}
	}
	return gql.NewEnum(gql.EnumConfig{
		Name:        "OrderStatus",
		Description: "Lifecycle state of an order.",
		Values:      values,
	})
}()

var sortDirectionEnum = gql.NewEnum(gql.EnumConfig{
	Name: "SortDirection",
	Values: gql.EnumValueConfigMap{
		"ASC":  &gql.EnumValueConfig{Value: "ASC"},
		"DESC": &gql.EnumValueConfig{Value: "DESC"},
	},
})

var orderFieldEnum = func() *gql.Enum {
	values := gql.EnumValueConfigMap{}
	for _, f := range domain.SortFields {
		values[string(f)] = &gql.EnumValueConfig{Value: string(f)}
	}
	return gql.NewEnum(gql.EnumConfig{
		Name:        "OrderField",
		Description: "Field an order listing is sorted by. Ties are broken by id.",
		Values:      values,
	})
}()

var orderItemType = gql.NewObject(gql.ObjectConfig{
	Name: "OrderItem",
	Fields: gql.Fields{
		"productId": &gql.Field{Type: gql.NewNonNull(gql.ID)},
		"quantity":  &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"price":     &gql.Field{Type: gql.NewNonNull(gql.Float)},
		"subtotal":  &gql.Field{Type: gql.NewNonNull(gql.Float)},
	},
})

var orderType = gql.NewObject(gql.ObjectConfig{
	Name: "Order",
	Fields: gql.Fields{
		"id":                   &gql.Field{Type: gql.NewNonNull(gql.ID)},
		"status":               &gql.Field{Type: gql.NewNonNull(orderStatusEnum)},
		"items":                &gql.Field{Type: gql.NewNonNull(gql.NewList(gql.NewNonNull(orderItemType)))},
		"total":                &gql.Field{Type: gql.NewNonNull(gql.Float), Description: "Sum of quantity times price over all items."},
		"customerId":           &gql.Field{Type: gql.ID},
		"shipmentAddressId":    &gql.Field{Type: gql.ID},
		"invoiceAddressId":     &gql.Field{Type: gql.ID},
		"paymentInformationId": &gql.Field{Type: gql.ID},
		"createdAt":            &gql.Field{Type: gql.NewNonNull(gql.DateTime)},
		"updatedAt":            &gql.Field{Type: gql.NewNonNull(gql.DateTime)},
	},
})

var orderConnectionType = gql.NewObject(gql.ObjectConfig{
	Name: "OrderConnection",
	Fields: gql.Fields{
		"nodes":       &gql.Field{Type: gql.NewNonNull(gql.NewList(gql.NewNonNull(orderType)))},
		"hasNextPage": &gql.Field{Type: gql.NewNonNull(gql.Boolean)},
		"totalCount":  &gql.Field{Type: gql.NewNonNull(gql.Int)},
	},
})

var orderItemInput = gql.NewInputObject(gql.InputObjectConfig{
	Name: "OrderItemInput",
	Fields: gql.InputObjectConfigFieldMap{
		"productId": &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.ID)},
		"quantity":  &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.Int)},
		"price":     &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.Float)},
	},
})

var createOrderInput = gql.NewInputObject(gql.InputObjectConfig{
	Name: "CreateOrderInput",
	Fields: gql.InputObjectConfigFieldMap{
		"items":                &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.NewList(gql.NewNonNull(orderItemInput)))},
		"customerId":           &gql.InputObjectFieldConfig{Type: gql.ID},
		"shipmentAddressId":    &gql.InputObjectFieldConfig{Type: gql.ID},
		"invoiceAddressId":     &gql.InputObjectFieldConfig{Type: gql.ID},
		"paymentInformationId": &gql.InputObjectFieldConfig{Type: gql.ID},
	},
})

// updateOrderInput accepts id and createdAt only to reject them with a field
// error instead of a schema error.
var updateOrderInput = gql.NewInputObject(gql.InputObjectConfig{
	Name: "UpdateOrderInput",
	Fields: gql.InputObjectConfigFieldMap{
		"id":                   &gql.InputObjectFieldConfig{Type: gql.ID},
		"createdAt":            &gql.InputObjectFieldConfig{Type: gql.String},
		"status":               &gql.InputObjectFieldConfig{Type: orderStatusEnum},
		"items":                &gql.InputObjectFieldConfig{Type: gql.NewList(gql.NewNonNull(orderItemInput))},
		"customerId":           &gql.InputObjectFieldConfig{Type: gql.ID},
		"shipmentAddressId":    &gql.InputObjectFieldConfig{Type: gql.ID},
		"invoiceAddressId":     &gql.InputObjectFieldConfig{Type: gql.ID},
		"paymentInformationId": &gql.InputObjectFieldConfig{Type: gql.ID},
	},
})

var orderFilterInput = gql.NewInputObject(gql.InputObjectConfig{
	Name: "OrderFilter",
	Fields: gql.InputObjectConfigFieldMap{
		"status":        &gql.InputObjectFieldConfig{Type: gql.NewList(gql.NewNonNull(orderStatusEnum))},
		"customerId":    &gql.InputObjectFieldConfig{Type: gql.ID},
		"productId":     &gql.InputObjectFieldConfig{Type: gql.ID},
		"createdAfter":  &gql.InputObjectFieldConfig{Type: gql.DateTime},
		"createdBefore": &gql.InputObjectFieldConfig{Type: gql.DateTime},
		"first":         &gql.InputObjectFieldConfig{Type: gql.Int},
		"skip":          &gql.InputObjectFieldConfig{Type: gql.Int},
		"orderBy":       &gql.InputObjectFieldConfig{Type: orderFieldEnum, DefaultValue: string(domain.SortByCreatedAt)},
		"direction":     &gql.InputObjectFieldConfig{Type: sortDirectionEnum, DefaultValue: "ASC"},
	},
})

// NewSchema builds the schema with every field resolved through r.
func NewSchema(r *Resolver) (gql.Schema, error) {
	query := gql.NewObject(gql.ObjectConfig{Name: "Query", Fields: r.queryFields()})
	mutation := gql.NewObject(gql.ObjectConfig{Name: "Mutation", Fields: r.mutationFields()})
	return gql.NewSchema(gql.SchemaConfig{Query: query, Mutation: mutation})
}
