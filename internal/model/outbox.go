package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus tracks the delivery state of an outbox event.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxPublishing OutboxStatus = "publishing"
	OutboxPublished  OutboxStatus = "published"
)

// OutboxEvent is an outgoing broker message written in the same
// transaction as the state change it announces. A relay drains pending
// events into the broker, giving at-least-once publish tied to the
// persisted coupon.
type OutboxEvent struct {
	ID        uuid.UUID       `db:"id"`
	CouponID  uuid.UUID       `db:"coupon_id"`
	Queue     string          `db:"queue"`
	Payload   json.RawMessage `db:"payload"`
	Status    OutboxStatus    `db:"status"`
	Attempts  int             `db:"attempts"`
	LastError *string         `db:"last_error"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}
