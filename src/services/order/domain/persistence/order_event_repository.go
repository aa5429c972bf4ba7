package persistence

import (
	"context"

	"go-order-graphql/src/config"
	"go-order-graphql/src/infrastructure/clock"
	orderdb "go-order-graphql/src/infrastructure/mongo"
	"go-order-graphql/src/services/events"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const eventsCollection = "order_events"

// EventRepository keeps events whose publication failed so they can be
// replayed. It implements events.EventLog.
type EventRepository struct {
	collection *mongo.Collection
	clock      clock.Clock
}

func NewEventRepository(cfg *config.Config, client *mongo.Client, clk clock.Clock) *EventRepository {
	return &EventRepository{
		collection: orderdb.Database(cfg, client).Collection(eventsCollection),
		clock:      clk,
	}
}

func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	return err
}

// StoreEventForReplay records evt with status failed.
func (r *EventRepository) StoreEventForReplay(ctx context.Context, evt events.Event) error {
	if err := evt.Validate(); err != nil {
		return err
	}

	eventDoc := events.StoredEvent{
		ID:        primitive.NewObjectID().Hex(),
		OrderID:   evt.OrderID,
		Topic:     evt.Topic,
		EventData: evt.Data,
		CreatedAt: r.clock.Now(),
		Replayed:  false,
		Status:    events.EventStatusFailed,
	}
	_, err := r.collection.InsertOne(ctx, eventDoc)
	return err
}

// GetUnreplayedEvents fetches events that have not been replayed yet
// Events are returned in FIFO order (oldest first) based on createdAt timestamp
func (r *EventRepository) GetUnreplayedEvents(ctx context.Context, limit int64) ([]events.StoredEvent, error) {
	filter := bson.M{
		"replayed": bson.M{"$ne": true},
		"status":   bson.M{"$in": []string{events.EventStatusPending, events.EventStatusFailed}},
	}
	opts := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stored := []events.StoredEvent{}
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *EventRepository) MarkEventAsReplaying(ctx context.Context, eventID string) error {
	return r.setStatus(ctx, eventID, bson.M{"status": events.EventStatusReplaying})
}

func (r *EventRepository) MarkEventAsCompleted(ctx context.Context, eventID string) error {
	return r.setStatus(ctx, eventID, bson.M{
		"status":     events.EventStatusCompleted,
		"replayed":   true,
		"replayedAt": r.clock.Now(),
	})
}

// MarkEventAsFailed leaves the event eligible for the next replay run.
func (r *EventRepository) MarkEventAsFailed(ctx context.Context, eventID string) error {
	return r.setStatus(ctx, eventID, bson.M{"status": events.EventStatusFailed})
}

func (r *EventRepository) setStatus(ctx context.Context, eventID string, fields bson.M) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": eventID}, bson.M{"$set": fields})
	return err
}
