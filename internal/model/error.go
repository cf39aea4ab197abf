package model

import "fmt"

// Validation rule codes, in the order the validator applies them.
const (
	ErrCodeInvalidCode44   = "INVALID_CODE44"
	ErrCodeMissingDocument = "MISSING_DOCUMENT"
	ErrCodeInvalidDocument = "INVALID_DOCUMENT"
	ErrCodeEmptyItems      = "EMPTY_ITEMS"
	ErrCodeTotalMismatch   = "TOTAL_MISMATCH"
	ErrCodeUnknownProduct  = "UNKNOWN_PRODUCT"
	ErrCodePriceOutOfRange = "PRICE_OUT_OF_RANGE"
	ErrCodeCouponConflict  = "COUPON_ALREADY_EXISTS"
	ErrCodeBuyerConflict   = "BUYER_ALREADY_EXISTS"
)

// ValidationError is a business-rule violation. It is always reported to
// the caller and never retried.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with a rule code and a
// human-readable message.
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// ConflictError is a non-fatal business outcome caused by a uniqueness
// constraint.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

var (
	// ErrCouponExists is returned when a coupon with the same code44 is
	// already stored.
	ErrCouponExists = &ConflictError{Code: ErrCodeCouponConflict, Message: "coupon with this code44 has already been processed"}

	// ErrBuyerExists is returned when a buyer is already associated with
	// the coupon.
	ErrBuyerExists = &ConflictError{Code: ErrCodeBuyerConflict, Message: "a buyer is already associated with this coupon"}
)

// InfrastructureError is a dependency failure (price oracle, database,
// broker). The dependency name is safe to surface to callers; connection
// details are not.
type InfrastructureError struct {
	Dependency string
	Err        error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// NewInfrastructureError wraps a dependency failure.
func NewInfrastructureError(dependency string, err error) *InfrastructureError {
	return &InfrastructureError{Dependency: dependency, Err: err}
}
