package broker

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Outcome is the result of handling one delivered message.
type Outcome int

const (
	// Success acknowledges the message, removing it from the queue.
	Success Outcome = iota

	// Failure rejects the message without requeueing it. A permanently
	// malformed message is dropped instead of being redelivered forever.
	Failure
)

// HandlerFunc processes one raw message body. Handlers must be
// idempotent: the broker delivers at least once.
type HandlerFunc func(ctx context.Context, body []byte) Outcome

// Consume subscribes to a queue and processes deliveries one at a time:
// the handler runs synchronously, then the delivery is acknowledged or
// rejected, and only then is the next delivery taken. Handler outcomes
// never terminate the loop; it runs until ctx is cancelled or the
// delivery channel closes.
func (b *Broker) Consume(ctx context.Context, queue string, handle HandlerFunc) error {
	b.mu.Lock()
	deliveries, err := b.ch.Consume(
		queue,
		"",    // consumer tag, server-generated
		false, // autoAck off: we ack/reject per handler outcome
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to start consuming queue %s: %w", queue, err)
	}

	logger := b.logger.With().Str("queue", queue).Logger()
	logger.Info().Msg("consumer started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("consumer stopping")
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for queue %s closed", queue)
			}
			dispatch(ctx, delivery, handle, logger)
		}
	}
}

// dispatch runs the handler for one delivery and settles it. Ack removes
// the message permanently; Nack without requeue drops it rather than
// redelivering a poison message indefinitely.
func dispatch(ctx context.Context, delivery amqp.Delivery, handle HandlerFunc, logger zerolog.Logger) {
	outcome := handle(ctx, delivery.Body)

	switch outcome {
	case Success:
		if err := delivery.Ack(false); err != nil {
			logger.Error().Err(err).Msg("failed to ack message")
		}
	default:
		logger.Warn().Msg("message rejected without requeue")
		if err := delivery.Nack(false, false); err != nil {
			logger.Error().Err(err).Msg("failed to nack message")
		}
	}
}
