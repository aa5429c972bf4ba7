package rabbitmq

import (
	"context"
	"fmt"
	"strings"

	"github.com/streadway/amqp"
)

// Publisher publishes order events to a topic exchange. Each event topic has
// a durable queue bound by its routing key, dead-lettered through a direct
// exchange into its own .dlq queue.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// RoutingKey converts a slash separated event topic into an AMQP routing key.
func RoutingKey(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

// TopicFromRoutingKey is the inverse of RoutingKey.
func TopicFromRoutingKey(key string) string {
	return strings.ReplaceAll(key, ".", "/")
}

// DeadLetterQueue names the queue collecting dead letters of topic.
func DeadLetterQueue(topic string) string {
	return RoutingKey(topic) + ".dlq"
}

func NewPublisher(host, exchange string, topics []string) (*Publisher, error) {
	conn, err := amqp.Dial(host)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := declareTopology(ch, exchange, topics); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func declareTopology(ch *amqp.Channel, exchange string, topics []string) error {
	err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare an exchange: %w", err)
	}

	// dead-letter exchange
	dlxName := exchange + ".dlx"
	err = ch.ExchangeDeclare(
		dlxName,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare a dead-letter exchange: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange": dlxName,
	}
	for _, topic := range topics {
		queueName := RoutingKey(topic)
		_, err = ch.QueueDeclare(
			queueName,
			true,
			false,
			false,
			false,
			args,
		)
		if err != nil {
			return fmt.Errorf("failed to declare event queue %s: %w", queueName, err)
		}

		err = ch.QueueBind(
			queueName, // queue name
			queueName, // routing key (same as queue name)
			exchange,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to bind event queue %s: %w", queueName, err)
		}

		// dead letters keep their original routing key
		dlqName := DeadLetterQueue(topic)
		if _, err = ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare DLQ %s: %w", dlqName, err)
		}
		if err = ch.QueueBind(dlqName, queueName, dlxName, false, nil); err != nil {
			return fmt.Errorf("failed to bind DLQ %s: %w", dlqName, err)
		}
	}
	return nil
}

// Publish sends body as a persistent message routed by the event topic.
func (p *Publisher) Publish(ctx context.Context, topic string, body []byte) error {
	if topic == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	if body == nil {
		return fmt.Errorf("message body cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.conn == nil || p.conn.IsClosed() || p.channel == nil {
		return fmt.Errorf("connection to RabbitMQ is closed")
	}

	routingKey := RoutingKey(topic)
	err := p.channel.Publish(
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Type:         topic,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message to topic '%s': %w", topic, err)
	}
	return nil
}

// Consume starts consuming queueName on a dedicated channel. Deliveries must
// be acknowledged by the caller.
func (p *Publisher) Consume(queueName string) (<-chan amqp.Delivery, error) {
	if p.conn == nil || p.conn.IsClosed() {
		return nil, fmt.Errorf("connection is closed")
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	msgs, err := ch.Consume(
		queueName, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to consume queue %s: %w", queueName, err)
	}
	return msgs, nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
