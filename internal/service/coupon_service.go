package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coupon-intake/internal/model"
	"coupon-intake/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// couponService implements CouponService. It orchestrates the intake
// pipeline: validate, duplicate fast-path, persist with outbox event.
type couponService struct {
	repo      repository.CouponRepository
	outbox    repository.OutboxRepository
	validator SubmissionValidator
	logger    zerolog.Logger
}

// NewCouponService creates a new coupon intake service.
func NewCouponService(
	repo repository.CouponRepository,
	outbox repository.OutboxRepository,
	validator SubmissionValidator,
	logger zerolog.Logger,
) CouponService {
	return &couponService{
		repo:      repo,
		outbox:    outbox,
		validator: validator,
		logger:    logger.With().Str("service", "coupon").Logger(),
	}
}

// Submit runs the intake pipeline for one submission. The lifecycle is
// Received → Validated → Persisted; Rejected is terminal from the first
// two states. Persistence never happens before validation passes, and
// the outbox event is written in the same transaction as the coupon, so
// publishing (done by the relay) never precedes a durable persist.
func (s *couponService) Submit(ctx context.Context, req *model.SubmitCouponRequest) (*model.Coupon, error) {
	if err := s.validator.Validate(ctx, req); err != nil {
		s.logger.Warn().
			Str("code44", req.Code44).
			Err(err).
			Msg("coupon submission rejected")
		return nil, err
	}

	// Fast-path duplicate read. The unique constraint on code44 remains
	// the guarantee against concurrent inserts of the same code.
	existing, err := s.repo.FindByCode44(ctx, req.Code44)
	if err != nil {
		return nil, model.NewInfrastructureError("database", err)
	}
	if existing != nil {
		s.logger.Warn().Str("code44", req.Code44).Msg("duplicate coupon submission")
		return nil, model.ErrCouponExists
	}

	now := time.Now().UTC()
	coupon := &model.Coupon{
		ID:              uuid.New(),
		Code44:          req.Code44,
		PurchaseDate:    req.PurchaseDate,
		TotalValue:      req.TotalValue,
		CompanyDocument: req.CompanyDocument,
		State:           req.State,
		Status:          model.StatusValidated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	coupon.Items = make([]model.CouponItem, len(req.Products))
	for i, p := range req.Products {
		coupon.Items[i] = model.CouponItem{
			ID:           uuid.New(),
			CouponID:     coupon.ID,
			Position:     i,
			Name:         p.Name,
			EAN:          p.EAN,
			UnitaryPrice: p.UnitaryPrice,
			Quantity:     p.Quantity,
		}
	}

	payload, err := json.Marshal(model.CouponAcceptedMessage{
		CupomID: coupon.ID.String(),
		Code44:  coupon.Code44,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal coupon accepted event: %w", err)
	}

	event := &model.OutboxEvent{
		ID:        uuid.New(),
		CouponID:  coupon.ID,
		Queue:     model.QueueCouponToProcess,
		Payload:   payload,
		Status:    model.OutboxPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	coupon.Status = model.StatusPersisted

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, model.NewInfrastructureError("database", err)
	}

	// Ensure the transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.repo.CreateCoupon(ctx, tx, coupon); err != nil {
		if errors.Is(err, model.ErrCouponExists) {
			// Lost a race with a concurrent submission of the same code44.
			return nil, model.ErrCouponExists
		}
		return nil, model.NewInfrastructureError("database", err)
	}

	if err = s.repo.CreateItems(ctx, tx, coupon.Items); err != nil {
		return nil, model.NewInfrastructureError("database", err)
	}

	if err = s.outbox.Insert(ctx, tx, event); err != nil {
		return nil, model.NewInfrastructureError("database", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, model.NewInfrastructureError("database", err)
	}

	s.logger.Info().
		Str("coupon_id", coupon.ID.String()).
		Str("code44", coupon.Code44).
		Int("item_count", len(coupon.Items)).
		Msg("coupon accepted and queued for processing")

	return coupon, nil
}

// GetByCode44 retrieves a stored coupon with its items and buyer.
func (s *couponService) GetByCode44(ctx context.Context, code44 string) (*model.Coupon, error) {
	coupon, err := s.repo.FindByCode44(ctx, code44)
	if err != nil {
		s.logger.Error().Err(err).Str("code44", code44).Msg("failed to get coupon")
		return nil, model.NewInfrastructureError("database", err)
	}
	return coupon, nil
}
