package service

import (
	"context"

	"coupon-intake/internal/model"
)

// CouponService defines operations for coupon intake.
type CouponService interface {
	// Submit validates a coupon submission, persists it together with its
	// outbox event, and returns the stored coupon.
	Submit(ctx context.Context, req *model.SubmitCouponRequest) (*model.Coupon, error)

	// GetByCode44 retrieves a stored coupon with its items and buyer.
	// Returns (nil, nil) when no coupon exists for the code.
	GetByCode44(ctx context.Context, code44 string) (*model.Coupon, error)
}

// EventPublisher publishes a raw message body to a named queue.
type EventPublisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// SubmissionValidator checks a coupon submission against business and
// pricing rules.
type SubmissionValidator interface {
	Validate(ctx context.Context, req *model.SubmitCouponRequest) error
}
