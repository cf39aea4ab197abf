package broker

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAcknowledger records how a delivery was settled.
type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	multiple bool
	requeued bool
	err      error
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	f.multiple = multiple
	return f.err
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.nacked = true
	f.multiple = multiple
	f.requeued = requeue
	return f.err
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.requeued = requeue
	return f.err
}

func TestDispatch_SuccessAcksDelivery(t *testing.T) {
	logger := zerolog.Nop()
	ack := &fakeAcknowledger{}

	delivery := amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         []byte(`{"cupomId": "abc"}`),
	}

	var received []byte
	handle := func(ctx context.Context, body []byte) Outcome {
		received = body
		return Success
	}

	dispatch(context.Background(), delivery, handle, logger)

	assert.Equal(t, delivery.Body, received)
	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	assert.False(t, ack.multiple)
}

func TestDispatch_FailureRejectsWithoutRequeue(t *testing.T) {
	logger := zerolog.Nop()
	ack := &fakeAcknowledger{}

	delivery := amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         []byte(`{not json`),
	}

	handle := func(ctx context.Context, body []byte) Outcome {
		return Failure
	}

	dispatch(context.Background(), delivery, handle, logger)

	// A rejected message is dropped, never redelivered
	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued)
}

func TestDispatch_AckFailureDoesNotPropagate(t *testing.T) {
	logger := zerolog.Nop()
	ack := &fakeAcknowledger{err: errors.New("channel closed")}

	delivery := amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
	}

	handle := func(ctx context.Context, body []byte) Outcome {
		return Success
	}

	// A failed ack is logged, not propagated
	require.NotPanics(t, func() {
		dispatch(context.Background(), delivery, handle, logger)
	})
	assert.True(t, ack.acked)
}
