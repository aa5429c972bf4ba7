package persistence

import (
	"context"
	"errors"
	"fmt"

	"go-order-graphql/src/services/order/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

// classify maps a driver error of operation op on order id into the domain
// taxonomy. A request the caller cancelled is not a store failure. Errors
// that are neither client caused nor transient are wrapped unchanged.
func classify(op string, id uuid.UUID, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("order store %s cancelled: %w", op, err)
	case errors.Is(err, mongo.ErrNoDocuments):
		return &domain.NotFoundError{ID: id}
	case mongo.IsDuplicateKeyError(err):
		return &domain.ConflictError{ID: id}
	case isUnavailable(err):
		return &domain.StoreUnavailableError{Op: op, Err: err}
	default:
		return fmt.Errorf("order store %s failed: %w", op, err)
	}
}

func isUnavailable(err error) bool {
	var selectionErr topology.ServerSelectionError
	return mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, mongo.ErrClientDisconnected) ||
		errors.Is(err, topology.ErrServerSelectionTimeout) ||
		errors.As(err, &selectionErr)
}
