package persistence

import (
	"context"
	"errors"
	"io"
	"iter"
	"testing"

	"go-order-graphql/src/infrastructure/log"
	"go-order-graphql/src/services/order/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Insert(ctx context.Context, order domain.Order) error {
	return m.Called(order).Error(0)
}

func (m *mockStore) FindByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	args := m.Called(id)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *mockStore) Update(ctx context.Context, id uuid.UUID, patch domain.OrderPatch) (domain.Order, error) {
	args := m.Called(id, patch)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(id).Error(0)
}

func (m *mockStore) List(ctx context.Context, filter domain.ListFilter) iter.Seq2[domain.Order, error] {
	return m.Called(filter).Get(0).(iter.Seq2[domain.Order, error])
}

func (m *mockStore) Count(ctx context.Context, filter domain.ListFilter) (int64, error) {
	args := m.Called(filter)
	return args.Get(0).(int64), args.Error(1)
}

type mapCache struct {
	entries map[string][]byte
	err     error
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte) error {
	if c.err != nil {
		return c.err
	}
	c.entries[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	if c.err != nil {
		return c.err
	}
	delete(c.entries, key)
	return nil
}

func newCachedRepo(store domain.OrderStore, cache Cache) *CachedOrderRepository {
	return NewCachedOrderRepository(store, cache, log.NewLoggerWithOutput(io.Discard, "error"))
}

func TestCachedOrderRepository_ReadThrough(t *testing.T) {
	store := new(mockStore)
	cache := newMapCache()
	order := sampleOrder()
	store.On("FindByID", orderID).Return(order, nil).Once()

	repo := newCachedRepo(store, cache)
	first, err := repo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	second, err := repo.FindByID(context.Background(), orderID)
	require.NoError(t, err)

	assert.Equal(t, order.ID, first.ID)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Total().Equal(second.Total()))
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Contains(t, cache.entries, "order:"+orderID.String())
	store.AssertExpectations(t)
}

func TestCachedOrderRepository_CacheFailureFallsBackToStore(t *testing.T) {
	store := new(mockStore)
	cache := newMapCache()
	cache.err = errors.New("redis down")
	store.On("FindByID", orderID).Return(sampleOrder(), nil).Twice()

	repo := newCachedRepo(store, cache)
	for i := 0; i < 2; i++ {
		_, err := repo.FindByID(context.Background(), orderID)
		require.NoError(t, err)
	}
	store.AssertExpectations(t)
}

func TestCachedOrderRepository_NotFoundIsNotCached(t *testing.T) {
	store := new(mockStore)
	cache := newMapCache()
	store.On("FindByID", orderID).Return(domain.Order{}, &domain.NotFoundError{ID: orderID})

	_, err := newCachedRepo(store, cache).FindByID(context.Background(), orderID)
	var notFound *domain.NotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.Empty(t, cache.entries)
}

func TestCachedOrderRepository_WritesEvict(t *testing.T) {
	store := new(mockStore)
	cache := newMapCache()
	key := "order:" + orderID.String()
	cache.entries[key] = []byte(`{"stale":true}`)

	paid := domain.StatusPaid
	patch := domain.OrderPatch{Status: &paid}
	updated := sampleOrder()
	updated.Status = paid
	store.On("Update", orderID, patch).Return(updated, nil)
	store.On("FindByID", orderID).Return(updated, nil).Once()
	store.On("Delete", orderID).Return(nil)

	repo := newCachedRepo(store, cache)
	got, err := repo.Update(context.Background(), orderID, patch)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)
	assert.NotContains(t, cache.entries, key)

	got, err = repo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)
	assert.Contains(t, cache.entries, key)

	require.NoError(t, repo.Delete(context.Background(), orderID))
	assert.Empty(t, cache.entries)
	store.AssertExpectations(t)
}

func TestCachedOrderRepository_FailedUpdateEvicts(t *testing.T) {
	store := new(mockStore)
	cache := newMapCache()
	cache.entries["order:"+orderID.String()] = []byte(`{}`)
	paid, placed := domain.StatusPaid, domain.StatusPlaced
	patch := domain.OrderPatch{Status: &paid, ExpectedStatus: &placed}
	store.On("Update", orderID, patch).Return(domain.Order{}, &domain.ConcurrentUpdateError{ID: orderID})

	_, err := newCachedRepo(store, cache).Update(context.Background(), orderID, patch)

	var concurrent *domain.ConcurrentUpdateError
	assert.True(t, errors.As(err, &concurrent))
	assert.Empty(t, cache.entries)
}

// writeDuringRead runs a write between the store read and the cache fill,
// as a concurrent request would.
type writeDuringRead struct {
	domain.OrderStore
	write func()
}

func (s *writeDuringRead) FindByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	order, err := s.OrderStore.FindByID(ctx, id)
	if s.write != nil {
		write := s.write
		s.write = nil
		write()
	}
	return order, err
}

func TestCachedOrderRepository_DeleteDuringFillIsNotResurrected(t *testing.T) {
	inner := new(mockStore)
	inner.On("FindByID", orderID).Return(sampleOrder(), nil).Once()
	inner.On("FindByID", orderID).Return(domain.Order{}, &domain.NotFoundError{ID: orderID})
	inner.On("Delete", orderID).Return(nil)
	cache := newMapCache()

	racing := &writeDuringRead{OrderStore: inner}
	repo := newCachedRepo(racing, cache)
	racing.write = func() {
		require.NoError(t, repo.Delete(context.Background(), orderID))
	}

	// the read began before the delete, so it may still return the order
	_, err := repo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Empty(t, cache.entries)

	_, err = repo.FindByID(context.Background(), orderID)
	var notFound *domain.NotFoundError
	assert.True(t, errors.As(err, &notFound), "got %v", err)
	inner.AssertExpectations(t)
}

func TestCachedOrderRepository_UpdateDuringFillIsNotOverwritten(t *testing.T) {
	inner := new(mockStore)
	stale := sampleOrder()
	fresh := sampleOrder()
	fresh.Status = domain.StatusCancelled
	cancelled := domain.StatusCancelled
	patch := domain.OrderPatch{Status: &cancelled}
	inner.On("FindByID", orderID).Return(stale, nil).Once()
	inner.On("FindByID", orderID).Return(fresh, nil).Once()
	inner.On("Update", orderID, patch).Return(fresh, nil)
	cache := newMapCache()

	racing := &writeDuringRead{OrderStore: inner}
	repo := newCachedRepo(racing, cache)
	racing.write = func() {
		_, err := repo.Update(context.Background(), orderID, patch)
		require.NoError(t, err)
	}

	_, err := repo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Empty(t, cache.entries)

	got, err := repo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	inner.AssertExpectations(t)
}

func TestCachedOrderRepository_PassesThroughInsert(t *testing.T) {
	store := new(mockStore)
	order := sampleOrder()
	store.On("Insert", order).Return(nil)

	require.NoError(t, newCachedRepo(store, newMapCache()).Insert(context.Background(), order))
	store.AssertExpectations(t)
}
