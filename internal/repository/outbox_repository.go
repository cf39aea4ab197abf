package repository

import (
	"context"
	"fmt"

	"coupon-intake/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// outboxRepository implements the OutboxRepository interface using PostgreSQL.
type outboxRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOutboxRepository creates a new PostgreSQL-backed outbox repository.
func NewOutboxRepository(pool *pgxpool.Pool, logger zerolog.Logger) OutboxRepository {
	return &outboxRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "outbox").Logger(),
	}
}

// Insert writes an outbox event within the provided transaction.
func (r *outboxRepository) Insert(ctx context.Context, tx pgx.Tx, event *model.OutboxEvent) error {
	query := `
		INSERT INTO coupon_outbox (id, coupon_id, queue, payload, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := tx.Exec(ctx, query,
		event.ID,
		event.CouponID,
		event.Queue,
		event.Payload,
		event.Status,
		event.Attempts,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("coupon_id", event.CouponID.String()).
			Str("queue", event.Queue).
			Msg("failed to insert outbox event")
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return nil
}

// ClaimPending claims up to limit pending events for publishing.
// FOR UPDATE SKIP LOCKED keeps concurrent relays from claiming the same
// rows; claimed rows move to 'publishing' so a relay crash leaves them
// visible for operators rather than silently stuck.
func (r *outboxRepository) ClaimPending(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin outbox claim: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		WITH claimed AS (
			SELECT id
			FROM coupon_outbox
			WHERE status = 'pending'
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE coupon_outbox o
		SET status = 'publishing', attempts = o.attempts + 1, updated_at = now()
		FROM claimed
		WHERE o.id = claimed.id
		RETURNING o.id, o.coupon_id, o.queue, o.payload, o.status, o.attempts, o.last_error, o.created_at, o.updated_at
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox events: %w", err)
	}
	defer rows.Close()

	var events []model.OutboxEvent
	for rows.Next() {
		var event model.OutboxEvent
		err := rows.Scan(
			&event.ID,
			&event.CouponID,
			&event.Queue,
			&event.Payload,
			&event.Status,
			&event.Attempts,
			&event.LastError,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox events: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit outbox claim: %w", err)
	}

	return events, nil
}

// MarkPublished records that an event reached the broker.
func (r *outboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE coupon_outbox
		SET status = 'published', last_error = NULL, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("event_id", id.String()).Msg("failed to mark outbox event published")
		return fmt.Errorf("failed to mark outbox event published: %w", err)
	}
	return nil
}

// MarkPending returns a claimed event to the pending state after a failed
// publish.
func (r *outboxRepository) MarkPending(ctx context.Context, id uuid.UUID, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE coupon_outbox
		SET status = 'pending', last_error = $2, updated_at = now()
		WHERE id = $1
	`, id, lastError)
	if err != nil {
		r.logger.Error().Err(err).Str("event_id", id.String()).Msg("failed to return outbox event to pending")
		return fmt.Errorf("failed to return outbox event to pending: %w", err)
	}
	return nil
}
