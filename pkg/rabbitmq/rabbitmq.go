package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	amqp "github.com/streadway/amqp"
)

// Names of the broker objects used for user lifecycle events.
const (
	UserExchange   = "users"
	UserQueue      = "user_events"
	UserBindingKey = "user.#"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     zerolog.Logger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ and declares the user events topology: a
// durable topic exchange and a durable queue bound to every user event.
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Info().Str("exchange", UserExchange).Str("queue", UserQueue).Msg("RabbitMQ client connected")

	return &Client{
		conn:    conn,
		channel: ch,
		log:     log,
	}, nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		UserExchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", UserExchange, err)
	}

	if _, err := ch.QueueDeclare(
		UserQueue, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", UserQueue, err)
	}

	if err := ch.QueueBind(UserQueue, UserBindingKey, UserExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", UserQueue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publish sends a persistent JSON message to exchange with routingKey.
func (c *Client) Publish(exchange, routingKey string, body []byte) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	err := c.channel.Publish(
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.log.Debug().Str("exchange", exchange).Str("routing_key", routingKey).Msg("published event")
	return nil
}

// ConsumeUserEvents delivers every message of the user events queue to
// messageHandler in a background goroutine. Messages are acked when the
// handler succeeds and rejected without requeue when it fails, so a poison
// message cannot loop forever.
func (c *Client) ConsumeUserEvents(messageHandler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		UserQueue, // queue
		"",        // consumer tag
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			if err := messageHandler(msg); err != nil {
				c.log.Error().Err(err).Uint64("delivery_tag", msg.DeliveryTag).Msg("error processing message")
				if nackErr := msg.Nack(false, false); nackErr != nil {
					c.log.Error().Err(nackErr).Uint64("delivery_tag", msg.DeliveryTag).Msg("error nacking message")
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				c.log.Error().Err(ackErr).Uint64("delivery_tag", msg.DeliveryTag).Msg("error acking message")
			}
		}
		c.log.Info().Msg("user event consumer stopped")
	}()

	return nil
}

// auditEvent mirrors the fields of a published user event that the audit
// log records.
type auditEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     uint64    `json:"userId"`
	Username   string    `json:"username"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurredAt"`
}

// AuditHandler returns a message handler that writes each user event to log.
// Malformed bodies are reported as errors.
func AuditHandler(log zerolog.Logger) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var ev auditEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			return fmt.Errorf("failed to decode user event: %w", err)
		}
		if ev.Type == "" {
			ev.Type = msg.RoutingKey
		}
		log.Info().
			Str("event_id", ev.ID).
			Str("event", ev.Type).
			Uint64("user_id", ev.UserID).
			Str("username", ev.Username).
			Str("actor", ev.Actor).
			Time("occurred_at", ev.OccurredAt).
			Msg("user audit event")
		return nil
	}
}
