package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go-order-graphql/src/config"
	"go-order-graphql/src/controllers"
	"go-order-graphql/src/graphql"
	"go-order-graphql/src/infrastructure/cache"
	"go-order-graphql/src/infrastructure/clock"
	"go-order-graphql/src/infrastructure/dapr"
	"go-order-graphql/src/infrastructure/log"
	"go-order-graphql/src/infrastructure/messaging"
	"go-order-graphql/src/infrastructure/metrics"
	"go-order-graphql/src/infrastructure/mongo"
	"go-order-graphql/src/infrastructure/rabbitmq"
	"go-order-graphql/src/services/dlq"
	"go-order-graphql/src/services/events"
	"go-order-graphql/src/services/order/domain"
	"go-order-graphql/src/services/order/domain/persistence"

	_ "go-order-graphql/docs"
)

const schemaPath = "./schemas/order.json"

var orderTopics = []string{events.OrderCreated, events.OrderUpdated, events.OrderDeleted}

// @title        Order GraphQL Service
// @version      1.0
// @description  Order microservice exposing GraphQL CRUD over MongoDB.
// @host         localhost:8080
// @BasePath     /
func main() {
	generateSchema := flag.Bool("generate-schema", false, "write the GraphQL introspection result to "+schemaPath+" and exit")
	flag.Parse()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *generateSchema {
		logger := log.NewLogger("info")
		if err := writeSchema(ctx); err != nil {
			logger.Fatal(ctx, "Failed to generate GraphQL schema", err)
		}
		logger.Info(ctx, "GraphQL schema written to "+schemaPath)
		return
	}

	configs, err := config.LoadConfig()
	if err != nil {
		log.NewLogger("info").Fatal(ctx, "Failed to load configuration", err)
	}
	logger := log.NewLogger(configs.LogLevel)
	logger.Info(ctx, "Configuration loaded successfully")

	// Initialize MongoDB connection; NewClient pings before returning
	client, err := mongo.NewClient(ctx, configs)
	if err != nil {
		logger.Fatal(ctx, "Failed to connect to MongoDB", err)
	}
	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer disconnectCancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.Exception(ctx, "MongoDB disconnect failed", err)
		}
	}()
	logger.Info(ctx, "MongoDB connection successful")

	// Initialize repositories
	clk := clock.NewSystem()
	orderRepository := persistence.NewOrderRepository(configs, client, clk)
	eventRepository := persistence.NewEventRepository(configs, client, clk)
	if err := orderRepository.EnsureIndexes(ctx); err != nil {
		logger.Fatal(ctx, "Failed to create order indexes", err)
	}
	if err := eventRepository.EnsureIndexes(ctx); err != nil {
		logger.Fatal(ctx, "Failed to create order event indexes", err)
	}

	var store domain.OrderStore = orderRepository
	if configs.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, configs.RedisAddr, configs.RedisTTL)
		if err != nil {
			logger.Fatal(ctx, "Failed to connect to Redis", err)
		}
		defer redisCache.Close()
		store = persistence.NewCachedOrderRepository(orderRepository, redisCache, logger)
		logger.Info(ctx, "Redis order cache enabled")
	}

	publisher, closePublisher, err := newPublisher(configs)
	if err != nil {
		logger.Fatal(ctx, "Failed to create event publisher", err)
	}
	defer closePublisher()
	logger.InfoWithExtra(ctx, "Event publisher configured", map[string]any{"broker": configs.EventBroker})

	// Create business services
	dispatcher := events.NewDispatcher(logger, publisher, eventRepository)
	orderService := domain.NewOrderService(logger, store, dispatcher, clk, policyFrom(configs))

	// Brokers that dead-letter messages feed them back into the replay log
	if source, ok := publisher.(messaging.Source); ok {
		listener := messaging.NewListener(source, logger)
		dlqHandler := dlq.NewHandler(eventRepository, logger)
		for _, topic := range orderTopics {
			listener.RegisterHandler(rabbitmq.DeadLetterQueue(topic), dlqHandler)
		}
		go listener.StartListening(ctx)
		logger.Info(ctx, "Dead-letter listeners started")
	}

	m := metrics.New()
	handler, err := graphql.NewHandler(graphql.NewResolver(orderService, logger, m))
	if err != nil {
		logger.Fatal(ctx, "Failed to build GraphQL schema", err)
	}

	app := controllers.NewApp(logger, m.Handler(),
		controllers.NewGraphQLController(handler),
		controllers.NewHealthController(mongo.Pinger{Client: client}, logger),
		controllers.NewOrderController(dispatcher),
		controllers.NewDaprController(),
	)

	// Set up graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Start server in a goroutine
	serverShutdown := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", configs.HTTPPort)
		logger.Info(ctx, "Starting server on "+addr)
		if err := app.Listen(addr); err != nil {
			serverShutdown <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case <-c:
		logger.Info(ctx, "Shutdown signal received, shutting down gracefully...")
	case err := <-serverShutdown:
		logger.Exception(ctx, "Server error occurred", err)
	}

	cancel()

	// Shutdown server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Exception(ctx, "Server shutdown error", err)
	}

	logger.Info(ctx, "Server shutdown complete")
}

// newPublisher selects the broker named by EVENT_BROKER. The returned
// publisher is nil for "none".
func newPublisher(configs *config.Config) (events.Publisher, func(), error) {
	switch configs.EventBroker {
	case config.EventBrokerDapr:
		return dapr.NewPublisher(configs.DaprHTTPPort, configs.DaprPubSubName), func() {}, nil
	case config.EventBrokerRabbitMQ:
		publisher, err := rabbitmq.NewPublisher(configs.RabbitMQHostName, configs.RabbitMQExchange, orderTopics)
		if err != nil {
			return nil, func() {}, err
		}
		return publisher, publisher.Close, nil
	default:
		return nil, func() {}, nil
	}
}

func policyFrom(configs *config.Config) domain.Policy {
	policy := domain.DefaultPolicy()
	policy.EnforceTransition = configs.EnforceStatusTransitions
	policy.AllowEmptyItems = configs.AllowEmptyItems
	policy.DefaultPageSize = configs.DefaultPageSize
	policy.MaxPageSize = configs.MaxPageSize
	return policy
}

// writeSchema needs no database: introspection never reaches a resolver.
func writeSchema(ctx context.Context) error {
	handler, err := graphql.NewHandler(graphql.NewResolver(nil, nil, nil))
	if err != nil {
		return err
	}
	schema, err := handler.IntrospectionJSON(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(schemaPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(schemaPath, schema, 0o644)
}
