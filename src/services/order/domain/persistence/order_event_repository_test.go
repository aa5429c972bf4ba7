package persistence

import (
	"context"
	"testing"

	"go-order-graphql/src/infrastructure/clock"
	"go-order-graphql/src/services/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestEventRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	newRepo := func(mt *mtest.T) *EventRepository {
		return &EventRepository{collection: mt.Coll, clock: clock.NewFixed(created)}
	}

	mt.Run("store rejects invalid events", func(mt *mtest.T) {
		err := newRepo(mt).StoreEventForReplay(context.Background(), events.Event{Topic: events.OrderCreated, OrderID: "o1", Data: []byte("{")})
		assert.Error(mt, err)
	})

	mt.Run("store", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		err := newRepo(mt).StoreEventForReplay(context.Background(), events.Event{Topic: events.OrderCreated, OrderID: "o1", Data: []byte(`{"id":"o1"}`)})
		assert.NoError(mt, err)
	})

	mt.Run("get unreplayed events", func(mt *mtest.T) {
		stored := bson.D{
			{Key: "_id", Value: "e1"},
			{Key: "orderId", Value: "o1"},
			{Key: "topic", Value: events.OrderUpdated},
			{Key: "eventData", Value: []byte(`{"id":"o1"}`)},
			{Key: "createdAt", Value: created},
			{Key: "replayed", Value: false},
			{Key: "status", Value: events.EventStatusFailed},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, stored))

		got, err := newRepo(mt).GetUnreplayedEvents(context.Background(), 10)
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, "e1", got[0].ID)
		assert.Equal(mt, events.OrderUpdated, got[0].Topic)
		assert.JSONEq(mt, `{"id":"o1"}`, string(got[0].EventData))
	})

	mt.Run("mark completed", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		assert.NoError(mt, newRepo(mt).MarkEventAsCompleted(context.Background(), "e1"))
	})
}
