package broker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Broker owns the process-wide AMQP connection and channel. It is
// constructed once at startup and closed on shutdown; no global state.
// A mutex serializes channel access because AMQP channels are not safe
// for unsynchronized concurrent publishing.
type Broker struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	mu     sync.Mutex
	logger zerolog.Logger
}

// Connect dials the broker and opens a channel.
func Connect(url string, logger zerolog.Logger) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open broker channel: %w", err)
	}

	logger = logger.With().Str("component", "broker").Logger()
	logger.Info().Msg("broker connection established")

	return &Broker{
		conn:   conn,
		ch:     ch,
		logger: logger,
	}, nil
}

// EnsureQueue declares a durable queue. Declaration is idempotent: an
// existing queue with the same properties is left untouched.
func (b *Broker) EnsureQueue(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}

	b.logger.Debug().Str("queue", name).Msg("durable queue declared")
	return nil
}

// Publish sends a message marked persistent, so it survives a broker
// restart once routed to a durable queue. Delivery is fire-and-forget
// with respect to consumer processing; a broker-side failure is returned
// to the caller.
func (b *Broker) Publish(ctx context.Context, queue string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		b.logger.Error().Err(err).Str("queue", queue).Msg("failed to publish message")
		return fmt.Errorf("failed to publish to queue %s: %w", queue, err)
	}

	b.logger.Debug().
		Str("queue", queue).
		Int("bytes", len(body)).
		Msg("message published")

	return nil
}

// Close releases the channel and connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ch.Close(); err != nil {
		b.conn.Close()
		return fmt.Errorf("failed to close broker channel: %w", err)
	}
	if err := b.conn.Close(); err != nil {
		return fmt.Errorf("failed to close broker connection: %w", err)
	}

	b.logger.Info().Msg("broker connection closed")
	return nil
}
