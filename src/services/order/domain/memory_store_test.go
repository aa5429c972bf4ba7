package domain

import (
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is an OrderStore kept in a map, with the listing semantics of
// the Mongo adapter.
type memoryStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]Order
	clock  *stepClock
	err    error
}

func newMemoryStore(clk *stepClock) *memoryStore {
	return &memoryStore{orders: map[uuid.UUID]Order{}, clock: clk}
}

func (m *memoryStore) Insert(_ context.Context, order Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, exists := m.orders[order.ID]; exists {
		return &ConflictError{ID: order.ID}
	}
	m.orders[order.ID] = order
	return nil
}

func (m *memoryStore) FindByID(_ context.Context, id uuid.UUID) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Order{}, m.err
	}
	order, ok := m.orders[id]
	if !ok {
		return Order{}, &NotFoundError{ID: id}
	}
	return order, nil
}

func (m *memoryStore) Update(_ context.Context, id uuid.UUID, patch OrderPatch) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Order{}, m.err
	}
	order, ok := m.orders[id]
	if !ok {
		return Order{}, &NotFoundError{ID: id}
	}
	if patch.ExpectedStatus != nil && order.Status != *patch.ExpectedStatus {
		return Order{}, &ConcurrentUpdateError{ID: id}
	}
	order = patch.Apply(order, m.clock.Now())
	m.orders[id] = order
	return order, nil
}

func (m *memoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.orders[id]; !ok {
		return &NotFoundError{ID: id}
	}
	delete(m.orders, id)
	return nil
}

func (m *memoryStore) List(_ context.Context, filter ListFilter) iter.Seq2[Order, error] {
	return func(yield func(Order, error) bool) {
		matched, err := m.matching(filter)
		if err != nil {
			yield(Order{}, err)
			return
		}
		if filter.Skip >= int64(len(matched)) {
			return
		}
		matched = matched[filter.Skip:]
		if filter.Limit > 0 && filter.Limit < int64(len(matched)) {
			matched = matched[:filter.Limit]
		}
		for _, order := range matched {
			if !yield(order, nil) {
				return
			}
		}
	}
}

func (m *memoryStore) Count(_ context.Context, filter ListFilter) (int64, error) {
	matched, err := m.matching(filter)
	return int64(len(matched)), err
}

func (m *memoryStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memoryStore) matching(filter ListFilter) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	var matched []Order
	for _, order := range m.orders {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, order.Status) {
			continue
		}
		if filter.CustomerID != nil && (order.CustomerID == nil || *order.CustomerID != *filter.CustomerID) {
			continue
		}
		if filter.ProductID != nil && !slices.ContainsFunc(order.Items, func(i Item) bool { return i.ProductID == *filter.ProductID }) {
			continue
		}
		if filter.CreatedAfter != nil && order.CreatedAt.Before(*filter.CreatedAfter) {
			continue
		}
		if filter.CreatedBefore != nil && !order.CreatedAt.Before(*filter.CreatedBefore) {
			continue
		}
		matched = append(matched, order)
	}

	slices.SortFunc(matched, func(a, b Order) int {
		var c int
		switch filter.SortField {
		case SortByUpdatedAt:
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		case SortByID:
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = slices.Compare(a.ID[:], b.ID[:])
		}
		if filter.Direction == SortDescending {
			return -c
		}
		return c
	})
	return matched, nil
}

// stepClock advances by step on every reading.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{now: start.UTC(), step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}
