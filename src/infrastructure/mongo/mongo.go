package mongo

import (
	"context"
	"fmt"
	"time"

	"go-order-graphql/src/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const appName = "Order"

// NewClient connects a pooled client sized by the configuration and verifies
// the deployment answers a ping. The caller owns the client and must
// Disconnect it on shutdown.
func NewClient(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoDBConnectionString).
		SetAppName(appName).
		SetMaxPoolSize(cfg.MongoDBMaxPoolSize).
		SetServerSelectionTimeout(5 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}
	return client, nil
}

// Database returns the configured order database of the client.
func Database(cfg *config.Config, client *mongo.Client) *mongo.Database {
	return client.Database(cfg.MongoDBDatabaseName)
}

// Pinger adapts a client to the readiness check.
type Pinger struct {
	Client *mongo.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx, readpref.Primary())
}
