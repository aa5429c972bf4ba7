package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"go-order-graphql/src/infrastructure/log"
	"go-order-graphql/src/services/order/domain"

	"github.com/google/uuid"
)

// Cache is a byte-oriented key value cache with entry expiry left to the
// implementation.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// CachedOrderRepository is a read-through cache in front of an order store.
// Writes evict the entry and never fill it; only reads fill. Cache failures
// are logged and the underlying store answers.
//
// A fill that raced a write of this process is evicted again. Writes from
// other replicas are bounded by the cache TTL.
type CachedOrderRepository struct {
	domain.OrderStore
	cache  Cache
	logger log.Logger
	writes [writeStripes]atomic.Uint64
}

const writeStripes = 64

func NewCachedOrderRepository(store domain.OrderStore, cache Cache, logger log.Logger) *CachedOrderRepository {
	return &CachedOrderRepository{OrderStore: store, cache: cache, logger: logger}
}

func cacheKey(id uuid.UUID) string {
	return "order:" + id.String()
}

func (r *CachedOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	raw, found, err := r.cache.Get(ctx, cacheKey(id))
	if err != nil {
		r.logger.Warn(ctx, fmt.Sprintf("order cache read failed for %s: %v", id, err))
	}
	if found {
		var order domain.Order
		if err := json.Unmarshal(raw, &order); err == nil {
			return order, nil
		}
		r.logger.Warn(ctx, fmt.Sprintf("discarding unreadable cache entry for order %s", id))
	}

	generation := r.writeCounter(id).Load()
	order, err := r.OrderStore.FindByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	r.store(ctx, order)
	// a write that finished after the read may predate this fill
	if r.writeCounter(id).Load() != generation {
		r.evict(ctx, id)
	}
	return order, nil
}

func (r *CachedOrderRepository) Update(ctx context.Context, id uuid.UUID, patch domain.OrderPatch) (domain.Order, error) {
	order, err := r.OrderStore.Update(ctx, id, patch)
	r.invalidate(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *CachedOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.OrderStore.Delete(ctx, id)
	r.invalidate(ctx, id)
	return err
}

func (r *CachedOrderRepository) writeCounter(id uuid.UUID) *atomic.Uint64 {
	return &r.writes[id[len(id)-1]%writeStripes]
}

// invalidate must run after the store write so that a concurrent fill
// either sees the new counter or is evicted here.
func (r *CachedOrderRepository) invalidate(ctx context.Context, id uuid.UUID) {
	r.writeCounter(id).Add(1)
	r.evict(ctx, id)
}

func (r *CachedOrderRepository) store(ctx context.Context, order domain.Order) {
	raw, err := json.Marshal(order)
	if err != nil {
		r.logger.Warn(ctx, fmt.Sprintf("failed to encode order %s for cache: %v", order.ID, err))
		return
	}
	if err := r.cache.Set(ctx, cacheKey(order.ID), raw); err != nil {
		r.logger.Warn(ctx, fmt.Sprintf("order cache write failed for %s: %v", order.ID, err))
	}
}

func (r *CachedOrderRepository) evict(ctx context.Context, id uuid.UUID) {
	if err := r.cache.Delete(context.WithoutCancel(ctx), cacheKey(id)); err != nil {
		r.logger.Warn(ctx, fmt.Sprintf("order cache eviction failed for %s: %v", id, err))
	}
}
