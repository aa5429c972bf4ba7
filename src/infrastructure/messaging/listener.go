package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-order-graphql/src/infrastructure/log"

	"github.com/streadway/amqp"
)

// Source opens a delivery stream for a queue.
type Source interface {
	Consume(queueName string) (<-chan amqp.Delivery, error)
}

// Handler processes one message body. A nil error acknowledges the delivery.
type Handler interface {
	Handle(ctx context.Context, routingKey string, body []byte) error
}

// Listener consumes a set of queues and hands every delivery to the handler
// registered for its queue, reconnecting with exponential backoff when a
// stream closes.
type Listener struct {
	source     Source
	logger     log.Logger
	handlers   map[string]Handler
	maxRetries int
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration)
}

func NewListener(source Source, logger log.Logger) *Listener {
	return &Listener{
		source:     source,
		logger:     logger,
		handlers:   make(map[string]Handler),
		maxRetries: 5,
		retryDelay: 2 * time.Second,
		sleep:      sleepContext,
	}
}

// RegisterHandler registers the handler of a queue.
func (l *Listener) RegisterHandler(queueName string, handler Handler) {
	l.handlers[queueName] = handler
}

// StartListening blocks until ctx is cancelled or every queue gave up.
func (l *Listener) StartListening(ctx context.Context) {
	var wg sync.WaitGroup
	for queueName, handler := range l.handlers {
		wg.Add(1)
		go func(queueName string, h Handler) {
			defer wg.Done()
			l.listenToQueue(ctx, queueName, h)
		}(queueName, handler)
	}
	wg.Wait()
}

func (l *Listener) listenToQueue(ctx context.Context, queueName string, handler Handler) {
	retryDelay := l.retryDelay
	l.logger.Info(ctx, "Starting to listen on queue: "+queueName)

	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		msgs, err := l.source.Consume(queueName)
		if err != nil {
			l.logger.Exception(ctx, fmt.Sprintf("Failed to start consuming queue: %s (attempt %d/%d)", queueName, attempt, l.maxRetries), err)
			if attempt == l.maxRetries {
				l.logger.Exception(ctx, "Max retries reached for queue: "+queueName+", giving up", err)
				return
			}
			l.sleep(ctx, retryDelay)
			retryDelay *= 2
			continue
		}

		attempt = 0
		retryDelay = l.retryDelay
		if done := l.drain(ctx, queueName, msgs, handler); done {
			return
		}
		l.logger.Warn(ctx, "Message channel closed for queue: "+queueName+", attempting to reconnect...")
	}
}

// drain processes deliveries until the stream closes or ctx is cancelled,
// reporting true for the latter.
func (l *Listener) drain(ctx context.Context, queueName string, msgs <-chan amqp.Delivery, handler Handler) bool {
	for {
		select {
		case <-ctx.Done():
			l.logger.Info(ctx, "Stopping listener for queue: "+queueName)
			return true
		case msg, ok := <-msgs:
			if !ok {
				return false
			}
			if err := handler.Handle(ctx, msg.RoutingKey, msg.Body); err != nil {
				l.logger.Exception(ctx, "Failed to handle message from queue: "+queueName, err)
				_ = msg.Nack(false, true)
				l.sleep(ctx, l.retryDelay)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
