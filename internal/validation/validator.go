package validation

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"coupon-intake/internal/model"
	"coupon-intake/internal/oracle"

	"github.com/paemuri/brdoc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	code44Pattern = regexp.MustCompile(`^\d{44}$`)

	// totalTolerance absorbs floating-point noise in declared totals:
	// 1/1000 of a currency unit.
	totalTolerance = decimal.New(1, -3)
)

// Validator checks coupon submissions against business and pricing rules.
type Validator struct {
	oracle oracle.Client
	logger zerolog.Logger
}

// New creates a coupon validator backed by the given price oracle.
func New(oracleClient oracle.Client, logger zerolog.Logger) *Validator {
	return &Validator{
		oracle: oracleClient,
		logger: logger.With().Str("component", "coupon-validator").Logger(),
	}
}

// Validate applies the rule chain to a submission and returns the first
// violated rule as a *model.ValidationError. Rules run in a fixed order:
// code44 format, document presence, document checksum, non-empty item
// list, total reconciliation, then per-item price-band checks in
// submission order. No oracle lookup happens before the local rules pass,
// and the first failing item short-circuits the remainder. An oracle
// transport failure is returned as a *model.InfrastructureError instead.
func (v *Validator) Validate(ctx context.Context, req *model.SubmitCouponRequest) error {
	if !code44Pattern.MatchString(req.Code44) {
		return model.NewValidationError(model.ErrCodeInvalidCode44,
			`the "code44" field must contain exactly 44 numeric digits`)
	}

	if req.CompanyDocument == "" {
		return model.NewValidationError(model.ErrCodeMissingDocument,
			"the company CNPJ is required")
	}

	if !brdoc.IsCNPJ(req.CompanyDocument) {
		return model.NewValidationError(model.ErrCodeInvalidDocument,
			"the company CNPJ is invalid")
	}

	if len(req.Products) == 0 {
		return model.NewValidationError(model.ErrCodeEmptyItems,
			"the product list cannot be empty")
	}

	if err := v.checkTotal(req); err != nil {
		return err
	}

	for _, item := range req.Products {
		if err := v.checkPriceBand(ctx, item); err != nil {
			return err
		}
	}

	v.logger.Debug().
		Str("code44", req.Code44).
		Int("item_count", len(req.Products)).
		Msg("coupon submission validated")

	return nil
}

// checkTotal reconciles the declared total against the sum of item
// subtotals within the fixed tolerance.
func (v *Validator) checkTotal(req *model.SubmitCouponRequest) error {
	calculated := decimal.Zero
	for _, item := range req.Products {
		subtotal := item.UnitaryPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		calculated = calculated.Add(subtotal)
	}

	if calculated.Sub(req.TotalValue).Abs().GreaterThan(totalTolerance) {
		return model.NewValidationError(model.ErrCodeTotalMismatch,
			fmt.Sprintf("the coupon total (%s) does not match the sum of its products (%s)",
				req.TotalValue.String(), calculated.String()))
	}

	return nil
}

// checkPriceBand performs one oracle lookup for the item and verifies the
// unit price falls inside the band, bounds inclusive.
func (v *Validator) checkPriceBand(ctx context.Context, item model.CouponItemRequest) error {
	band, err := v.oracle.PriceBand(ctx, item.EAN)
	if err != nil {
		if errors.Is(err, oracle.ErrProductNotFound) {
			return model.NewValidationError(model.ErrCodeUnknownProduct,
				fmt.Sprintf("EAN %q of product %q is unknown to the price oracle", item.EAN, item.Name))
		}
		return model.NewInfrastructureError("price oracle", err)
	}

	if item.UnitaryPrice.LessThan(band.MinPrice) || item.UnitaryPrice.GreaterThan(band.MaxPrice) {
		return model.NewValidationError(model.ErrCodePriceOutOfRange,
			fmt.Sprintf("price of product %q (%s) is outside the allowed range (%s - %s)",
				item.Name, item.UnitaryPrice.String(), band.MinPrice.String(), band.MaxPrice.String()))
	}

	return nil
}
