package service

import (
	"context"
	"time"

	"coupon-intake/internal/model"
	"coupon-intake/internal/repository"

	"github.com/rs/zerolog"
)

// OutboxRelay drains pending outbox events into the broker. Events stay
// in the outbox until the broker accepts them, so a publish that fails
// after a successful persist is retried on a later tick instead of being
// lost: at-least-once publish tied to the persisted coupon.
type OutboxRelay struct {
	outbox    repository.OutboxRepository
	coupons   repository.CouponRepository
	publisher EventPublisher
	interval  time.Duration
	batchSize int
	logger    zerolog.Logger
}

// NewOutboxRelay creates an outbox relay.
func NewOutboxRelay(
	outbox repository.OutboxRepository,
	coupons repository.CouponRepository,
	publisher EventPublisher,
	interval time.Duration,
	batchSize int,
	logger zerolog.Logger,
) *OutboxRelay {
	return &OutboxRelay{
		outbox:    outbox,
		coupons:   coupons,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "outbox-relay").Logger(),
	}
}

// Run drains the outbox on a fixed interval until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().
		Dur("interval", r.interval).
		Int("batch_size", r.batchSize).
		Msg("outbox relay started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("outbox relay stopping")
			return
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

// drain claims one batch of pending events and publishes them. A failed
// publish returns the event to pending with the error recorded; a
// successful publish moves the coupon to its terminal published status.
func (r *OutboxRelay) drain(ctx context.Context) {
	events, err := r.outbox.ClaimPending(ctx, r.batchSize)
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to claim outbox events")
		return
	}

	for _, event := range events {
		if err := r.publisher.Publish(ctx, event.Queue, event.Payload); err != nil {
			r.logger.Warn().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("queue", event.Queue).
				Int("attempts", event.Attempts).
				Msg("publish failed, event returned to pending")
			if markErr := r.outbox.MarkPending(ctx, event.ID, err.Error()); markErr != nil {
				r.logger.Error().Err(markErr).Str("event_id", event.ID.String()).Msg("failed to return event to pending")
			}
			continue
		}

		if err := r.outbox.MarkPublished(ctx, event.ID); err != nil {
			// The event may be claimed and published again: acceptable
			// under at-least-once semantics.
			r.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to mark event published")
			continue
		}

		if err := r.coupons.UpdateStatus(ctx, event.CouponID, model.StatusPublished); err != nil {
			r.logger.Error().Err(err).Str("coupon_id", event.CouponID.String()).Msg("failed to mark coupon published")
			continue
		}

		r.logger.Debug().
			Str("event_id", event.ID.String()).
			Str("coupon_id", event.CouponID.String()).
			Str("queue", event.Queue).
			Msg("outbox event published")
	}
}
