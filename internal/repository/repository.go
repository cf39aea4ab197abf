package repository

import (
	"context"

	"coupon-intake/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CouponRepository defines the interface for coupon data access operations.
type CouponRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// FindByCode44 retrieves a coupon by its 44-digit code, including its
	// items in submission order and the linked buyer when present.
	// Returns (nil, nil) when no coupon exists for the code.
	FindByCode44(ctx context.Context, code44 string) (*model.Coupon, error)

	// CreateCoupon inserts a new coupon within the provided transaction.
	// Returns model.ErrCouponExists if the code44 unique constraint is
	// violated; the constraint, not the fast-path read, resolves
	// concurrent inserts of the same code.
	CreateCoupon(ctx context.Context, tx pgx.Tx, coupon *model.Coupon) error

	// CreateItems inserts the coupon's items within the provided transaction.
	CreateItems(ctx context.Context, tx pgx.Tx, items []model.CouponItem) error

	// UpdateStatus moves a stored coupon to the given lifecycle status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error

	// FindBuyerByCoupon retrieves the buyer linked to a coupon.
	// Returns (nil, nil) when no buyer exists.
	FindBuyerByCoupon(ctx context.Context, couponID uuid.UUID) (*model.Buyer, error)

	// CreateBuyer inserts a buyer linked to a coupon. Returns
	// model.ErrBuyerExists if a buyer already exists for the coupon.
	CreateBuyer(ctx context.Context, buyer *model.Buyer) error
}

// OutboxRepository defines the interface for the coupon outbox.
type OutboxRepository interface {
	// Insert writes an outbox event within the provided transaction, so
	// the event is durably recorded together with the coupon it announces.
	Insert(ctx context.Context, tx pgx.Tx, event *model.OutboxEvent) error

	// ClaimPending atomically claims up to limit pending events for
	// publishing. Claimed events are not visible to concurrent relays.
	ClaimPending(ctx context.Context, limit int) ([]model.OutboxEvent, error)

	// MarkPublished records that an event reached the broker.
	MarkPublished(ctx context.Context, id uuid.UUID) error

	// MarkPending returns a claimed event to the pending state after a
	// failed publish, recording the error for inspection.
	MarkPending(ctx context.Context, id uuid.UUID, lastError string) error
}
