package domain

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go-order-graphql/src/infrastructure/clock"
	"go-order-graphql/src/infrastructure/log"
	"go-order-graphql/src/services/events"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxUpdateAttempts bounds how often an update is re-evaluated after losing a
// race on the order's status.
const maxUpdateAttempts = 3

// OrderStore is the persistence port of the aggregate. Implementations map
// their failures into the error taxonomy of this package. Update must honour
// OrderPatch.ExpectedStatus atomically.
type OrderStore interface {
	Insert(ctx context.Context, order Order) error
	FindByID(ctx context.Context, id uuid.UUID) (Order, error)
	Update(ctx context.Context, id uuid.UUID, patch OrderPatch) (Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) iter.Seq2[Order, error]
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

type EventDispatcher interface {
	Dispatch(ctx context.Context, evt events.Event)
}

type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	UpdateOrder(ctx context.Context, id string, input UpdateOrderInput) (*Order, error)
	DeleteOrder(ctx context.Context, id string) error
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderPage, error)
}

type orderService struct {
	logger     log.Logger
	store      OrderStore
	dispatcher EventDispatcher
	clock      clock.Clock
	policy     Policy
	newID      func() uuid.UUID
}

func NewOrderService(
	logger log.Logger,
	store OrderStore,
	dispatcher EventDispatcher,
	clk clock.Clock,
	policy Policy,
) OrderService {
	return &orderService{
		logger:     logger,
		store:      store,
		dispatcher: dispatcher,
		clock:      clk,
		policy:     policy,
		newID:      uuid.New,
	}
}

// CreateOrder validates the input, assigns id and timestamps and inserts the
// order. The id is generated once and never regenerated on failure.
func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	if len(input.Items) == 0 && !s.policy.AllowEmptyItems {
		return nil, &ValidationError{Field: "items", Reason: "must contain at least one item"}
	}
	items, err := parseItems(input.Items)
	if err != nil {
		return nil, err
	}
	refs, err := parseReferences(input.CustomerID, input.ShipmentAddressID, input.InvoiceAddressID, input.PaymentInformationID)
	if err != nil {
		return nil, err
	}
	if refs.customer, err = authorizeCustomer(ctx, refs.customer, "create orders"); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	order := Order{
		ID:                   s.newID(),
		Status:               s.policy.InitialStatus,
		Items:                items,
		CustomerID:           refs.customer,
		ShipmentAddressID:    refs.shipmentAddress,
		InvoiceAddressID:     refs.invoiceAddress,
		PaymentInformationID: refs.paymentInformation,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.store.Insert(ctx, order); err != nil {
		s.logFailure(ctx, fmt.Sprintf("failed to insert order %s", order.ID), err)
		return nil, err
	}

	s.logger.InfoWithExtra(ctx, "Order created", map[string]any{"orderId": order.ID.String(), "items": len(order.Items)})
	s.dispatch(ctx, events.OrderCreated, order.ID, toOrderDTO(order))
	return &order, nil
}

func (s *orderService) GetOrder(ctx context.Context, rawID string) (*Order, error) {
	id, err := ParseID("id", rawID)
	if err != nil {
		return nil, err
	}
	order, err := s.store.FindByID(ctx, id)
	if err != nil {
		s.logFailure(ctx, fmt.Sprintf("failed to find order %s", id), err)
		return nil, err
	}
	if err := authorizeOrder(ctx, order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder applies the mutable fields of input. Status changes must follow
// the policy's transition graph and items may only change while the order is
// still in its initial status. The checks are bound to the status they read:
// when a concurrent update moves the order first, they are evaluated again
// against the new status.
func (s *orderService) UpdateOrder(ctx context.Context, rawID string, input UpdateOrderInput) (*Order, error) {
	id, err := ParseID("id", rawID)
	if err != nil {
		return nil, err
	}
	patch, err := s.buildPatch(input)
	if err != nil {
		return nil, err
	}

	var updated Order
	var changed bool
	for attempt := 1; ; attempt++ {
		updated, changed, err = s.tryUpdate(ctx, id, patch)
		var concurrent *ConcurrentUpdateError
		if errors.As(err, &concurrent) && attempt < maxUpdateAttempts {
			continue
		}
		break
	}
	if err != nil {
		s.logFailure(ctx, fmt.Sprintf("failed to update order %s", id), err)
		return nil, err
	}
	if !changed {
		return &updated, nil
	}

	s.logger.InfoWithExtra(ctx, "Order updated", map[string]any{"orderId": id.String(), "status": updated.Status.String()})
	s.dispatch(ctx, events.OrderUpdated, id, toOrderDTO(updated))
	return &updated, nil
}

// tryUpdate validates patch against the stored order and writes it on the
// condition that the status is still the one validated against. It reports
// false when the patch turned out to change nothing.
func (s *orderService) tryUpdate(ctx context.Context, id uuid.UUID, patch OrderPatch) (Order, bool, error) {
	_, restricted := restrictedUser(ctx)
	if patch.Status != nil || patch.ReplaceItems || restricted {
		current, err := s.store.FindByID(ctx, id)
		if err != nil {
			return Order{}, false, err
		}
		if err := authorizeOrder(ctx, current); err != nil {
			return Order{}, false, err
		}
		if patch.CustomerID != nil {
			if _, err := authorizeCustomer(ctx, patch.CustomerID, "reassign orders"); err != nil {
				return Order{}, false, err
			}
		}
		if patch.Status != nil {
			if *patch.Status == current.Status {
				patch.Status = nil
			} else if !s.policy.CanTransition(current.Status, *patch.Status) {
				return Order{}, false, &InvalidTransitionError{From: current.Status, To: *patch.Status}
			}
		}
		if patch.ReplaceItems && !s.policy.ItemsEditable(current.Status) {
			return Order{}, false, &ValidationError{
				Field:  "items",
				Reason: fmt.Sprintf("items can only change while the order is %s", s.policy.InitialStatus),
			}
		}
		if patch.Empty() {
			return current, false, nil
		}
		patch.ExpectedStatus = &current.Status
	}

	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return Order{}, false, err
	}
	return updated, true, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, rawID string) error {
	id, err := ParseID("id", rawID)
	if err != nil {
		return err
	}
	if _, restricted := restrictedUser(ctx); restricted {
		current, err := s.store.FindByID(ctx, id)
		if err != nil {
			s.logFailure(ctx, fmt.Sprintf("failed to load order %s for delete", id), err)
			return err
		}
		if err := authorizeOrder(ctx, current); err != nil {
			return err
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.logFailure(ctx, fmt.Sprintf("failed to delete order %s", id), err)
		return err
	}

	s.logger.InfoWithExtra(ctx, "Order deleted", map[string]any{"orderId": id.String()})
	s.dispatch(ctx, events.OrderDeleted, id, events.OrderDeletedDTO{
		ID:        id.String(),
		Version:   1,
		DeletedAt: s.clock.Now(),
	})
	return nil
}

// ListOrders returns one page of orders. When a total is requested the count
// runs concurrently with the listing.
func (s *orderService) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderPage, error) {
	filter, err := s.buildFilter(ctx, input)
	if err != nil {
		return nil, err
	}

	page := &OrderPage{}
	pageSize := filter.Limit
	// one extra document tells whether a next page exists
	filter.Limit = pageSize + 1

	g, gctx := errgroup.WithContext(ctx)
	if input.WithTotalCount {
		g.Go(func() error {
			total, err := s.store.Count(gctx, filter)
			if err != nil {
				return err
			}
			page.TotalCount = total
			return nil
		})
	}
	g.Go(func() error {
		orders := make([]Order, 0, pageSize)
		for order, err := range s.store.List(gctx, filter) {
			if err != nil {
				return err
			}
			orders = append(orders, order)
		}
		if int64(len(orders)) > pageSize {
			orders = orders[:pageSize]
			page.HasNextPage = true
		}
		page.Orders = orders
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logFailure(ctx, "failed to list orders", err)
		return nil, err
	}
	return page, nil
}

func (s *orderService) buildPatch(input UpdateOrderInput) (OrderPatch, error) {
	var patch OrderPatch
	if input.ID != nil {
		return patch, &ValidationError{Field: "id", Value: *input.ID, Reason: "is immutable"}
	}
	if input.CreatedAt != nil {
		return patch, &ValidationError{Field: "createdAt", Value: *input.CreatedAt, Reason: "is set by the service"}
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return patch, &ValidationError{Field: "status", Value: input.Status.String(), Reason: "unknown status"}
		}
		status := *input.Status
		patch.Status = &status
	}
	if input.Items != nil {
		if len(*input.Items) == 0 && !s.policy.AllowEmptyItems {
			return patch, &ValidationError{Field: "items", Reason: "must contain at least one item"}
		}
		items, err := parseItems(*input.Items)
		if err != nil {
			return patch, err
		}
		patch.Items = items
		patch.ReplaceItems = true
	}

	refs, err := parseReferences(input.CustomerID, input.ShipmentAddressID, input.InvoiceAddressID, input.PaymentInformationID)
	if err != nil {
		return patch, err
	}
	patch.CustomerID = refs.customer
	patch.ShipmentAddressID = refs.shipmentAddress
	patch.InvoiceAddressID = refs.invoiceAddress
	patch.PaymentInformationID = refs.paymentInformation

	if patch.Empty() {
		return patch, &ValidationError{Field: "patch", Reason: "must change at least one field"}
	}
	return patch, nil
}

func (s *orderService) buildFilter(ctx context.Context, input ListOrdersInput) (ListFilter, error) {
	filter := ListFilter{
		CreatedAfter:  input.CreatedAfter,
		CreatedBefore: input.CreatedBefore,
		Limit:         int64(s.policy.DefaultPageSize),
		Direction:     SortAscending,
		SortField:     SortByCreatedAt,
	}
	if input.Direction == SortDescending {
		filter.Direction = SortDescending
	}
	if input.SortField != "" {
		if !input.SortField.Valid() {
			return filter, &ValidationError{Field: "orderBy", Value: string(input.SortField), Reason: "unknown sort field"}
		}
		filter.SortField = input.SortField
	}

	for i, status := range input.Statuses {
		if !status.Valid() {
			return filter, &ValidationError{Field: fmt.Sprintf("status[%d]", i), Value: status.String(), Reason: "unknown status"}
		}
	}
	filter.Statuses = input.Statuses

	var err error
	if filter.CustomerID, err = ParseOptionalID("customerId", input.CustomerID); err != nil {
		return filter, err
	}
	if filter.ProductID, err = ParseOptionalID("productId", input.ProductID); err != nil {
		return filter, err
	}
	if filter.CustomerID, err = authorizeCustomer(ctx, filter.CustomerID, "list orders"); err != nil {
		return filter, err
	}

	if input.First != nil {
		if *input.First < 1 || *input.First > s.policy.MaxPageSize {
			return filter, &ValidationError{
				Field:  "first",
				Value:  fmt.Sprint(*input.First),
				Reason: fmt.Sprintf("must be between 1 and %d", s.policy.MaxPageSize),
			}
		}
		filter.Limit = int64(*input.First)
	}
	if input.Skip != nil {
		if *input.Skip < 0 {
			return filter, &ValidationError{Field: "skip", Value: fmt.Sprint(*input.Skip), Reason: "must not be negative"}
		}
		filter.Skip = int64(*input.Skip)
	}
	if filter.CreatedAfter != nil && filter.CreatedBefore != nil && filter.CreatedBefore.Before(*filter.CreatedAfter) {
		return filter, &ValidationError{Field: "createdBefore", Reason: "must not be before createdAfter"}
	}
	return filter, nil
}

func (s *orderService) dispatch(ctx context.Context, topic string, id uuid.UUID, payload any) {
	if s.dispatcher == nil {
		return
	}
	evt, err := events.NewEvent(topic, id.String(), payload)
	if err != nil {
		s.logger.Exception(ctx, fmt.Sprintf("failed to build %s event for order %s", topic, id), err)
		return
	}
	s.dispatcher.Dispatch(ctx, evt)
}

// logFailure logs infrastructure and unexpected failures; client-caused
// errors of the taxonomy are returned without noise.
func (s *orderService) logFailure(ctx context.Context, message string, err error) {
	if _, known := ErrorCode(err); known && !IsRetryable(err) {
		return
	}
	s.logger.Exception(ctx, message, err)
}

func parseItems(inputs []ItemInput) ([]Item, error) {
	items := make([]Item, 0, len(inputs))
	for i, in := range inputs {
		productID, err := ParseID(fmt.Sprintf("items[%d].productId", i), in.ProductID)
		if err != nil {
			return nil, err
		}
		if in.Quantity <= 0 {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("items[%d].quantity", i),
				Value:  fmt.Sprint(in.Quantity),
				Reason: "must be a positive integer",
			}
		}
		if in.Price.IsNegative() {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("items[%d].price", i),
				Value:  in.Price.String(),
				Reason: "must not be negative",
			}
		}
		items = append(items, Item{ProductID: productID, Quantity: in.Quantity, Price: in.Price})
	}
	return items, nil
}

type references struct {
	customer           *uuid.UUID
	shipmentAddress    *uuid.UUID
	invoiceAddress     *uuid.UUID
	paymentInformation *uuid.UUID
}

func parseReferences(customer, shipmentAddress, invoiceAddress, paymentInformation *string) (references, error) {
	var refs references
	var err error
	if refs.customer, err = ParseOptionalID("customerId", customer); err != nil {
		return refs, err
	}
	if refs.shipmentAddress, err = ParseOptionalID("shipmentAddressId", shipmentAddress); err != nil {
		return refs, err
	}
	if refs.invoiceAddress, err = ParseOptionalID("invoiceAddressId", invoiceAddress); err != nil {
		return refs, err
	}
	if refs.paymentInformation, err = ParseOptionalID("paymentInformationId", paymentInformation); err != nil {
		return refs, err
	}
	return refs, nil
}

func toOrderDTO(o Order) events.OrderDTO {
	items := make([]events.OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, events.OrderItemDTO{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			Price:     item.Price.String(),
		})
	}
	return events.OrderDTO{
		ID:                   o.ID.String(),
		Status:               o.Status.String(),
		Items:                items,
		Total:                o.Total().String(),
		CustomerID:           optionalString(o.CustomerID),
		ShipmentAddressID:    optionalString(o.ShipmentAddressID),
		InvoiceAddressID:     optionalString(o.InvoiceAddressID),
		PaymentInformationID: optionalString(o.PaymentInformationID),
		Version:              1,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

func optionalString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
