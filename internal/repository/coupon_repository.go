package repository

import (
	"context"
	"errors"
	"fmt"

	"coupon-intake/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const uniqueViolationCode = "23505"

// couponRepository implements the CouponRepository interface using PostgreSQL.
type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

// isUniqueViolation reports whether err is a violation of the named
// unique constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolationCode &&
		pgErr.ConstraintName == constraint
}

// BeginTx starts a new database transaction.
func (r *couponRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// FindByCode44 retrieves a coupon with its items and buyer.
func (r *couponRepository) FindByCode44(ctx context.Context, code44 string) (*model.Coupon, error) {
	couponQuery := `
		SELECT id, code44, purchase_date, total_value, company_document, state, status, created_at, updated_at
		FROM coupons
		WHERE code44 = $1
	`

	var coupon model.Coupon
	err := r.pool.QueryRow(ctx, couponQuery, code44).Scan(
		&coupon.ID,
		&coupon.Code44,
		&coupon.PurchaseDate,
		&coupon.TotalValue,
		&coupon.CompanyDocument,
		&coupon.State,
		&coupon.Status,
		&coupon.CreatedAt,
		&coupon.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("code44", code44).Msg("coupon not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("code44", code44).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}

	itemsQuery := `
		SELECT id, coupon_id, position, name, ean, unitary_price, quantity
		FROM coupon_items
		WHERE coupon_id = $1
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, itemsQuery, coupon.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("code44", code44).Msg("failed to query coupon items")
		return nil, fmt.Errorf("failed to query coupon items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.CouponItem
		err := rows.Scan(&item.ID, &item.CouponID, &item.Position, &item.Name, &item.EAN, &item.UnitaryPrice, &item.Quantity)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan coupon item row")
			return nil, fmt.Errorf("failed to scan coupon item: %w", err)
		}
		coupon.Items = append(coupon.Items, item)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating coupon item rows")
		return nil, fmt.Errorf("error iterating coupon items: %w", err)
	}

	buyer, err := r.FindBuyerByCoupon(ctx, coupon.ID)
	if err != nil {
		return nil, err
	}
	coupon.Buyer = buyer

	return &coupon, nil
}

// CreateCoupon inserts a new coupon within the provided transaction.
func (r *couponRepository) CreateCoupon(ctx context.Context, tx pgx.Tx, coupon *model.Coupon) error {
	query := `
		INSERT INTO coupons (id, code44, purchase_date, total_value, company_document, state, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(ctx, query,
		coupon.ID,
		coupon.Code44,
		coupon.PurchaseDate,
		coupon.TotalValue,
		coupon.CompanyDocument,
		coupon.State,
		coupon.Status,
		coupon.CreatedAt,
		coupon.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "coupons_code44_key") {
			r.logger.Warn().Str("code44", coupon.Code44).Msg("duplicate coupon insert rejected by constraint")
			return model.ErrCouponExists
		}
		r.logger.Error().Err(err).Str("coupon_id", coupon.ID.String()).Msg("failed to create coupon")
		return fmt.Errorf("failed to create coupon: %w", err)
	}

	r.logger.Debug().
		Str("coupon_id", coupon.ID.String()).
		Str("code44", coupon.Code44).
		Msg("coupon created successfully")

	return nil
}

// CreateItems inserts multiple coupon items within the provided transaction.
func (r *couponRepository) CreateItems(ctx context.Context, tx pgx.Tx, items []model.CouponItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO coupon_items (id, coupon_id, position, name, ean, unitary_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.CouponID, item.Position, item.Name, item.EAN, item.UnitaryPrice, item.Quantity)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("coupon_id", items[i].CouponID.String()).
				Str("ean", items[i].EAN).
				Msg("failed to create coupon item")
			return fmt.Errorf("failed to create coupon item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("coupon items created successfully")

	return nil
}

// UpdateStatus moves a stored coupon to the given lifecycle status.
func (r *couponRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	query := `
		UPDATE coupons
		SET status = $2, updated_at = now()
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("coupon_id", id.String()).
			Str("status", string(status)).
			Msg("failed to update coupon status")
		return fmt.Errorf("failed to update coupon status: %w", err)
	}

	return nil
}

// FindBuyerByCoupon retrieves the buyer linked to a coupon.
func (r *couponRepository) FindBuyerByCoupon(ctx context.Context, couponID uuid.UUID) (*model.Buyer, error) {
	query := `
		SELECT id, coupon_id, name, document, birth_date, created_at
		FROM buyers
		WHERE coupon_id = $1
	`

	var buyer model.Buyer
	err := r.pool.QueryRow(ctx, query, couponID).Scan(
		&buyer.ID,
		&buyer.CouponID,
		&buyer.Name,
		&buyer.Document,
		&buyer.BirthDate,
		&buyer.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("coupon_id", couponID.String()).Msg("failed to query buyer")
		return nil, fmt.Errorf("failed to query buyer: %w", err)
	}

	return &buyer, nil
}

// CreateBuyer inserts a buyer linked to a coupon.
func (r *couponRepository) CreateBuyer(ctx context.Context, buyer *model.Buyer) error {
	query := `
		INSERT INTO buyers (id, coupon_id, name, document, birth_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		buyer.ID,
		buyer.CouponID,
		buyer.Name,
		buyer.Document,
		buyer.BirthDate,
		buyer.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "buyers_coupon_id_key") {
			r.logger.Debug().
				Str("coupon_id", buyer.CouponID.String()).
				Msg("buyer already associated with coupon")
			return model.ErrBuyerExists
		}
		r.logger.Error().Err(err).Str("coupon_id", buyer.CouponID.String()).Msg("failed to create buyer")
		return fmt.Errorf("failed to create buyer: %w", err)
	}

	r.logger.Debug().
		Str("buyer_id", buyer.ID.String()).
		Str("coupon_id", buyer.CouponID.String()).
		Msg("buyer created successfully")

	return nil
}
