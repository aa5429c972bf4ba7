package persistence

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go-order-graphql/src/config"
	"go-order-graphql/src/infrastructure/clock"
	orderdb "go-order-graphql/src/infrastructure/mongo"
	"go-order-graphql/src/services/order/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ordersCollection = "orders"

// OrderRepository stores orders in MongoDB. It implements domain.OrderStore.
type OrderRepository struct {
	collection   *mongo.Collection
	clock        clock.Clock
	writeTimeout time.Duration
}

func NewOrderRepository(cfg *config.Config, client *mongo.Client, clk clock.Clock) *OrderRepository {
	return &OrderRepository{
		collection:   orderdb.Database(cfg, client).Collection(ordersCollection),
		clock:        clk,
		writeTimeout: cfg.MongoDBWriteTimeout,
	}
}

// EnsureIndexes creates the indexes backing listing and filtering.
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "customer_id", Value: 1}}},
		{Keys: bson.D{{Key: "items.product_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	doc, err := toDocument(order)
	if err != nil {
		return err
	}

	ctx, cancel := r.writeContext(ctx)
	defer cancel()

	_, err = r.collection.InsertOne(ctx, doc)
	return classify("insert", order.ID, err)
}

func (r *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	var doc OrderDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return domain.Order{}, classify("find", id, err)
	}
	return doc.toDomain()
}

// Update applies patch atomically and returns the updated order. updated_at
// only moves forward, so a writer with a lagging clock cannot rewind it. A
// patch with an expected status only matches while the stored status is
// still that one.
func (r *OrderRepository) Update(ctx context.Context, id uuid.UUID, patch domain.OrderPatch) (domain.Order, error) {
	set, err := setFields(patch)
	if err != nil {
		return domain.Order{}, err
	}
	update := bson.D{{Key: "$max", Value: bson.D{{Key: "updated_at", Value: r.clock.Now()}}}}
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}

	ctx, cancel := r.writeContext(ctx)
	defer cancel()

	query := bson.D{{Key: "_id", Value: id.String()}}
	if patch.ExpectedStatus != nil {
		query = append(query, bson.E{Key: "status", Value: statusMatch(*patch.ExpectedStatus)})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc OrderDocument
	err = r.collection.FindOneAndUpdate(ctx, query, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) && patch.ExpectedStatus != nil {
		return domain.Order{}, r.missedUpdate(ctx, id)
	}
	if err != nil {
		return domain.Order{}, classify("update", id, err)
	}
	return doc.toDomain()
}

// missedUpdate tells a deleted order from one whose status moved on.
func (r *OrderRepository) missedUpdate(ctx context.Context, id uuid.UUID) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id.String()}, options.Count().SetLimit(1))
	if err != nil {
		return classify("update", id, err)
	}
	if n == 0 {
		return &domain.NotFoundError{ID: id}
	}
	return &domain.ConcurrentUpdateError{ID: id}
}

func (r *OrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.writeContext(ctx)
	defer cancel()

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return classify("delete", id, err)
	}
	if res.DeletedCount == 0 {
		return &domain.NotFoundError{ID: id}
	}
	return nil
}

// List streams the orders matching filter ordered by the filter's sort field
// with _id breaking ties. The cursor is closed as soon as the caller stops
// iterating.
func (r *OrderRepository) List(ctx context.Context, filter domain.ListFilter) iter.Seq2[domain.Order, error] {
	return func(yield func(domain.Order, error) bool) {
		direction := int(filter.Direction)
		if direction == 0 {
			direction = int(domain.SortAscending)
		}
		opts := options.Find().
			SetSort(sortSpec(filter.SortField, direction)).
			SetSkip(filter.Skip)
		if filter.Limit > 0 {
			opts.SetLimit(filter.Limit)
		}

		cursor, err := r.collection.Find(ctx, buildQuery(filter), opts)
		if err != nil {
			yield(domain.Order{}, classify("list", uuid.Nil, err))
			return
		}
		defer cursor.Close(context.WithoutCancel(ctx))

		for cursor.Next(ctx) {
			var doc OrderDocument
			if err := cursor.Decode(&doc); err != nil {
				yield(domain.Order{}, fmt.Errorf("failed to decode order: %w", err))
				return
			}
			order, err := doc.toDomain()
			if err != nil {
				yield(domain.Order{}, err)
				return
			}
			if !yield(order, nil) {
				return
			}
		}
		if err := cursor.Err(); err != nil {
			yield(domain.Order{}, classify("list", uuid.Nil, err))
		}
	}
}

// Count returns the number of orders matching filter, ignoring paging.
func (r *OrderRepository) Count(ctx context.Context, filter domain.ListFilter) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, buildQuery(filter))
	if err != nil {
		return 0, classify("count", uuid.Nil, err)
	}
	return n, nil
}

// writeContext detaches a write from the caller's cancellation and bounds it
// by the configured write timeout.
func (r *OrderRepository) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if r.writeTimeout <= 0 {
		return detached, func() {}
	}
	return context.WithTimeout(detached, r.writeTimeout)
}

func setFields(patch domain.OrderPatch) (bson.D, error) {
	var set bson.D
	if patch.Status != nil {
		set = append(set, bson.E{Key: "status", Value: patch.Status.String()})
	}
	if patch.ReplaceItems {
		items, err := toItemDocuments(patch.Items)
		if err != nil {
			return nil, err
		}
		set = append(set, bson.E{Key: "items", Value: items})
	}
	refs := []struct {
		key string
		id  *uuid.UUID
	}{
		{"customer_id", patch.CustomerID},
		{"shipment_address_id", patch.ShipmentAddressID},
		{"invoice_address_id", patch.InvoiceAddressID},
		{"payment_information_id", patch.PaymentInformationID},
	}
	for _, ref := range refs {
		if ref.id != nil {
			set = append(set, bson.E{Key: ref.key, Value: ref.id.String()})
		}
	}
	return set, nil
}

func buildQuery(filter domain.ListFilter) bson.D {
	query := bson.D{}
	if len(filter.Statuses) > 0 {
		statuses := make(bson.A, 0, len(filter.Statuses)+1)
		for _, s := range filter.Statuses {
			statuses = append(statuses, statusValues(s)...)
		}
		query = append(query, bson.E{Key: "status", Value: bson.D{{Key: "$in", Value: statuses}}})
	}
	if filter.CustomerID != nil {
		query = append(query, bson.E{Key: "customer_id", Value: filter.CustomerID.String()})
	}
	if filter.ProductID != nil {
		query = append(query, bson.E{Key: "items.product_id", Value: filter.ProductID.String()})
	}
	if filter.CreatedAfter != nil || filter.CreatedBefore != nil {
		createdAt := bson.D{}
		if filter.CreatedAfter != nil {
			createdAt = append(createdAt, bson.E{Key: "$gte", Value: *filter.CreatedAfter})
		}
		if filter.CreatedBefore != nil {
			createdAt = append(createdAt, bson.E{Key: "$lt", Value: *filter.CreatedBefore})
		}
		query = append(query, bson.E{Key: "created_at", Value: createdAt})
	}
	return query
}

// statusValues lists the stored values that read as s. Version 1 documents
// without a status read as PLACED.
func statusValues(s domain.Status) bson.A {
	if s == domain.StatusPlaced {
		return bson.A{s.String(), nil}
	}
	return bson.A{s.String()}
}

func statusMatch(s domain.Status) any {
	values := statusValues(s)
	if len(values) == 1 {
		return values[0]
	}
	return bson.D{{Key: "$in", Value: values}}
}

func sortSpec(field domain.SortField, direction int) bson.D {
	key := "created_at"
	switch field {
	case domain.SortByUpdatedAt:
		key = "updated_at"
	case domain.SortByID:
		return bson.D{{Key: "_id", Value: direction}}
	}
	return bson.D{{Key: key, Value: direction}, {Key: "_id", Value: direction}}
}
