package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EventBrokerDapr     = "dapr"
	EventBrokerRabbitMQ = "rabbitmq"
	EventBrokerNone     = "none"
)

type Config struct {
	HTTPPort int
	LogLevel string

	MongoDBConnectionString string
	MongoDBDatabaseName     string
	MongoDBMaxPoolSize      uint64
	MongoDBWriteTimeout     time.Duration

	EventBroker      string
	DaprHTTPPort     int
	DaprPubSubName   string
	RabbitMQHostName string
	RabbitMQExchange string

	RedisAddr string
	RedisTTL  time.Duration

	AllowEmptyItems          bool
	EnforceStatusTransitions bool
	DefaultPageSize          int
	MaxPageSize              int
}

func LoadConfig() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables only")
	}

	env := &envReader{}
	config := &Config{
		HTTPPort: env.Int("HTTP_PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MongoDBConnectionString: os.Getenv("MONGODB_URI"),
		MongoDBDatabaseName:     getEnv("MONGODB_DATABASE_NAME", "order-database"),
		MongoDBMaxPoolSize:      env.PositiveUint64("MONGODB_MAX_POOL_SIZE", 50),
		MongoDBWriteTimeout:     env.Duration("MONGODB_WRITE_TIMEOUT", 10*time.Second),

		EventBroker:      strings.ToLower(getEnv("EVENT_BROKER", EventBrokerDapr)),
		DaprHTTPPort:     env.Int("DAPR_HTTP_PORT", 3500),
		DaprPubSubName:   getEnv("DAPR_PUBSUB_NAME", "pubsub"),
		RabbitMQHostName: os.Getenv("RABBITMQ_HOSTNAME"),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "order_events"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisTTL:  env.Duration("REDIS_TTL", 5*time.Minute),

		AllowEmptyItems:          env.Bool("ALLOW_EMPTY_ITEMS", false),
		EnforceStatusTransitions: env.Bool("ENFORCE_STATUS_TRANSITIONS", true),
		DefaultPageSize:          env.Int("DEFAULT_PAGE_SIZE", 50),
		MaxPageSize:              env.Int("MAX_PAGE_SIZE", 500),
	}
	if err := env.Err(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports the first setting the service cannot start with.
func (c *Config) Validate() error {
	if c.MongoDBConnectionString == "" {
		return errors.New("MONGODB_URI is not set")
	}
	if c.MongoDBMaxPoolSize == 0 {
		return errors.New("MONGODB_MAX_POOL_SIZE must be greater than 0")
	}
	switch c.EventBroker {
	case EventBrokerDapr, EventBrokerNone:
	case EventBrokerRabbitMQ:
		if c.RabbitMQHostName == "" {
			return errors.New("RABBITMQ_HOSTNAME is required when EVENT_BROKER=rabbitmq")
		}
	default:
		return errors.New("EVENT_BROKER must be one of dapr, rabbitmq, none")
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize < c.DefaultPageSize {
		return errors.New("page sizes must satisfy 0 < DEFAULT_PAGE_SIZE <= MAX_PAGE_SIZE")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envReader parses typed settings and collects every malformed value, so a
// typo is reported instead of silently replaced by the default.
type envReader struct {
	errs []error
}

func (r *envReader) Err() error {
	return errors.Join(r.errs...)
}

func (r *envReader) fail(key, value, want string) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q is not %s", key, value, want))
}

func (r *envReader) Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, "an integer")
		return def
	}
	return n
}

func (r *envReader) PositiveUint64(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		r.fail(key, v, "an integer greater than 0")
		return def
	}
	return uint64(n)
}

func (r *envReader) Bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, "a boolean")
		return def
	}
	return b
}

func (r *envReader) Duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, "a duration")
		return def
	}
	return d
}
