package graphql

import (
	"context"
	"time"

	"go-order-graphql/src/infrastructure/log"
	"go-order-graphql/src/services/order/domain"

	gql "github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// Observer records the outcome of each executed operation.
type Observer interface {
	ObserveOperation(operation string, failed bool, elapsed time.Duration)
}

type Resolver struct {
	service  domain.OrderService
	logger   log.Logger
	observer Observer
}

// NewResolver returns the resolver of every root field. observer may be nil.
func NewResolver(service domain.OrderService, logger log.Logger, observer Observer) *Resolver {
	return &Resolver{service: service, logger: logger, observer: observer}
}

func (r *Resolver) queryFields() gql.Fields {
	return gql.Fields{
		"order": &gql.Field{
			Type:        orderType,
			Description: "Fetch one order by id.",
			Args: gql.FieldConfigArgument{
				"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)},
			},
			Resolve: r.operation("order", r.order),
		},
		"orders": &gql.Field{
			Type:        gql.NewNonNull(gql.NewList(gql.NewNonNull(orderType))),
			Description: "List orders ordered by creation time.",
			Args: gql.FieldConfigArgument{
				"filter": &gql.ArgumentConfig{Type: orderFilterInput},
			},
			Resolve: r.operation("orders", r.orders),
		},
		"orderConnection": &gql.Field{
			Type:        gql.NewNonNull(orderConnectionType),
			Description: "List orders with paging information.",
			Args: gql.FieldConfigArgument{
				"filter": &gql.ArgumentConfig{Type: orderFilterInput},
			},
			Resolve: r.operation("orderConnection", r.orderConnection),
		},
	}
}

func (r *Resolver) mutationFields() gql.Fields {
	return gql.Fields{
		"createOrder": &gql.Field{
			Type: gql.NewNonNull(orderType),
			Args: gql.FieldConfigArgument{
				"input": &gql.ArgumentConfig{Type: gql.NewNonNull(createOrderInput)},
			},
			Resolve: r.operation("createOrder", r.createOrder),
		},
		"updateOrder": &gql.Field{
			Type: gql.NewNonNull(orderType),
			Args: gql.FieldConfigArgument{
				"id":    &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)},
				"patch": &gql.ArgumentConfig{Type: gql.NewNonNull(updateOrderInput)},
			},
			Resolve: r.operation("updateOrder", r.updateOrder),
		},
		"deleteOrder": &gql.Field{
			Type: gql.NewNonNull(gql.Boolean),
			Args: gql.FieldConfigArgument{
				"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)},
			},
			Resolve: r.operation("deleteOrder", r.deleteOrder),
		},
	}
}

// operation wraps a root resolver with error mapping and metrics.
func (r *Resolver) operation(name string, resolve gql.FieldResolveFn) gql.FieldResolveFn {
	return func(p gql.ResolveParams) (interface{}, error) {
		ctx := contextOf(p)
		start := time.Now()
		result, err := resolve(p)
		if r.observer != nil {
			r.observer.ObserveOperation(name, err != nil, time.Since(start))
		}
		if err != nil {
			apiErr := toAPIError(err)
			if apiErr.code == codeInternal {
				r.logger.Exception(ctx, "graphql operation "+name+" failed", err)
			}
			return nil, apiErr
		}
		return result, nil
	}
}

func (r *Resolver) order(p gql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["id"].(string)
	order, err := r.service.GetOrder(contextOf(p), id)
	if err != nil {
		return nil, err
	}
	return orderView(*order), nil
}

func (r *Resolver) orders(p gql.ResolveParams) (interface{}, error) {
	page, err := r.service.ListOrders(contextOf(p), listInput(p.Args["filter"]))
	if err != nil {
		return nil, err
	}
	return orderViews(page.Orders), nil
}

func (r *Resolver) orderConnection(p gql.ResolveParams) (interface{}, error) {
	input := listInput(p.Args["filter"])
	input.WithTotalCount = selects(p.Info, "totalCount")
	page, err := r.service.ListOrders(contextOf(p), input)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"nodes":       orderViews(page.Orders),
		"hasNextPage": page.HasNextPage,
		"totalCount":  page.TotalCount,
	}, nil
}

func (r *Resolver) createOrder(p gql.ResolveParams) (interface{}, error) {
	input, err := createInput(p.Args["input"])
	if err != nil {
		return nil, err
	}
	order, err := r.service.CreateOrder(contextOf(p), input)
	if err != nil {
		return nil, err
	}
	return orderView(*order), nil
}

func (r *Resolver) updateOrder(p gql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["id"].(string)
	input, err := updateInput(p.Args["patch"])
	if err != nil {
		return nil, err
	}
	order, err := r.service.UpdateOrder(contextOf(p), id, input)
	if err != nil {
		return nil, err
	}
	return orderView(*order), nil
}

func (r *Resolver) deleteOrder(p gql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["id"].(string)
	if err := r.service.DeleteOrder(contextOf(p), id); err != nil {
		return nil, err
	}
	return true, nil
}

func contextOf(p gql.ResolveParams) context.Context {
	if p.Context == nil {
		return context.Background()
	}
	return p.Context
}

// selects reports whether the current field selects the named subfield.
// Fragments are not expanded, so any fragment counts as a match.
func selects(info gql.ResolveInfo, name string) bool {
	for _, field := range info.FieldASTs {
		if field.SelectionSet == nil {
			continue
		}
		for _, selection := range field.SelectionSet.Selections {
			switch s := selection.(type) {
			case *ast.Field:
				if s.Name != nil && s.Name.Value == name {
					return true
				}
			case *ast.FragmentSpread, *ast.InlineFragment:
				return true
			}
		}
	}
	return false
}
