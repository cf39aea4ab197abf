package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a coupon.
type Status string

const (
	StatusReceived  Status = "received"
	StatusValidated Status = "validated"
	StatusPersisted Status = "persisted"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

// statusTransitions lists the allowed successor states for each status.
// No transition skips a predecessor: persistence requires validation,
// publishing requires persistence.
var statusTransitions = map[Status][]Status{
	StatusReceived:  {StatusValidated, StatusRejected},
	StatusValidated: {StatusPersisted, StatusRejected},
	StatusPersisted: {StatusPublished},
	StatusPublished: {},
	StatusRejected:  {},
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Coupon represents a retail purchase receipt.
type Coupon struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Code44          string          `json:"code44" db:"code44"`
	PurchaseDate    time.Time       `json:"purchaseDate" db:"purchase_date"`
	TotalValue      decimal.Decimal `json:"totalValue" db:"total_value"`
	CompanyDocument string          `json:"companyDocument" db:"company_document"`
	State           string          `json:"state" db:"state"`
	Status          Status          `json:"status" db:"status"`
	Items           []CouponItem    `json:"products"`
	Buyer           *Buyer          `json:"buyer,omitempty"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// CouponItem represents a line item on a coupon. Items are created
// atomically with their coupon and never mutated afterwards.
type CouponItem struct {
	ID           uuid.UUID       `json:"-" db:"id"`
	CouponID     uuid.UUID       `json:"-" db:"coupon_id"`
	Position     int             `json:"-" db:"position"`
	Name         string          `json:"name" db:"name"`
	EAN          string          `json:"ean" db:"ean"`
	UnitaryPrice decimal.Decimal `json:"unitaryPrice" db:"unitary_price"`
	Quantity     int             `json:"quantity" db:"quantity"`
}

// Buyer represents the identity data associated with a coupon.
// At most one buyer exists per coupon.
type Buyer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CouponID  uuid.UUID `json:"couponId" db:"coupon_id"`
	Name      string    `json:"name" db:"name"`
	Document  string    `json:"document" db:"document"`
	BirthDate time.Time `json:"birthDate" db:"birth_date"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// SubmitCouponRequest represents the payload for submitting a coupon.
type SubmitCouponRequest struct {
	Code44          string              `json:"code44"`
	PurchaseDate    time.Time           `json:"purchaseDate"`
	TotalValue      decimal.Decimal     `json:"totalValue"`
	CompanyDocument string              `json:"companyDocument"`
	State           string              `json:"state"`
	Products        []CouponItemRequest `json:"products"`
}

// CouponItemRequest represents a single product in a coupon submission.
type CouponItemRequest struct {
	Name         string          `json:"name"`
	EAN          string          `json:"ean"`
	UnitaryPrice decimal.Decimal `json:"unitaryPrice"`
	Quantity     int             `json:"quantity"`
}
