package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coupon-intake/internal/broker"
	"coupon-intake/internal/model"
	"coupon-intake/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BuyerAssociationHandler links buyer identity data from the
// buyer_data_processed queue to a previously stored coupon. Processing is
// idempotent: a redelivered message for an already-associated coupon is a
// successful no-op, never a duplicate row.
type BuyerAssociationHandler struct {
	repo   repository.CouponRepository
	logger zerolog.Logger
}

// NewBuyerAssociationHandler creates a buyer association handler.
func NewBuyerAssociationHandler(repo repository.CouponRepository, logger zerolog.Logger) *BuyerAssociationHandler {
	return &BuyerAssociationHandler{
		repo:   repo,
		logger: logger.With().Str("handler", "buyer-association").Logger(),
	}
}

// Handle processes one buyer data message. Malformed payloads are a
// Failure outcome, never a fault that escapes the consumer loop.
func (h *BuyerAssociationHandler) Handle(ctx context.Context, body []byte) broker.Outcome {
	var msg model.BuyerDataMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Warn().Err(err).Msg("malformed buyer data message")
		return broker.Failure
	}

	couponID, err := uuid.Parse(msg.CupomID)
	if err != nil {
		h.logger.Warn().Err(err).Str("cupom_id", msg.CupomID).Msg("invalid coupon id in buyer data message")
		return broker.Failure
	}

	birthDate, err := parseBirthDate(msg.BirthDate)
	if err != nil {
		h.logger.Warn().Err(err).Str("cupom_id", msg.CupomID).Msg("invalid birth date in buyer data message")
		return broker.Failure
	}

	existing, err := h.repo.FindBuyerByCoupon(ctx, couponID)
	if err != nil {
		h.logger.Error().Err(err).Str("coupon_id", couponID.String()).Msg("failed to look up buyer")
		return broker.Failure
	}
	if existing != nil {
		h.logger.Debug().
			Str("coupon_id", couponID.String()).
			Msg("buyer already associated, ignoring redelivery")
		return broker.Success
	}

	buyer := &model.Buyer{
		ID:        uuid.New(),
		CouponID:  couponID,
		Name:      msg.Name,
		Document:  msg.Document,
		BirthDate: birthDate,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.repo.CreateBuyer(ctx, buyer); err != nil {
		if errors.Is(err, model.ErrBuyerExists) {
			// Lost a race with a concurrent delivery; the buyer is stored.
			return broker.Success
		}
		h.logger.Error().Err(err).Str("coupon_id", couponID.String()).Msg("failed to create buyer")
		return broker.Failure
	}

	h.logger.Info().
		Str("buyer_id", buyer.ID.String()).
		Str("coupon_id", couponID.String()).
		Msg("buyer associated with coupon")

	return broker.Success
}

// parseBirthDate accepts ISO-8601 timestamps and bare dates.
func parseBirthDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised birth date format: %q", value)
}
