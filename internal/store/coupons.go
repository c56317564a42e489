package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/models"
	"github.com/shopspring/decimal"
)

const couponColumns = `id, code, type, value, max_discount, min_order, usage_limit, used_count,
	start_at, end_at, status, created_at`

type NewCoupon struct {
	Code        string
	Type        models.CouponType
	Value       decimal.Decimal
	MaxDiscount *decimal.Decimal
	MinOrder    decimal.Decimal
	UsageLimit  *int
	StartAt     time.Time
	EndAt       time.Time
}

// NormalizeCouponCode is the stored form of a coupon code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	coupon := &models.Coupon{}
	var maxDiscount decimal.NullDecimal
	var usageLimit sql.NullInt64

	err := row.Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.Type,
		&coupon.Value,
		&maxDiscount,
		&coupon.MinOrder,
		&usageLimit,
		&coupon.UsedCount,
		&coupon.StartAt,
		&coupon.EndAt,
		&coupon.Status,
		&coupon.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if maxDiscount.Valid {
		coupon.MaxDiscount = &maxDiscount.Decimal
	}
	if usageLimit.Valid {
		limit := int(usageLimit.Int64)
		coupon.UsageLimit = &limit
	}
	return coupon, nil
}

func CreateCoupon(ctx context.Context, q database.Querier, c NewCoupon) (*models.Coupon, error) {
	var maxDiscount decimal.NullDecimal
	if c.MaxDiscount != nil {
		maxDiscount = decimal.NewNullDecimal(*c.MaxDiscount)
	}
	var usageLimit sql.NullInt64
	if c.UsageLimit != nil {
		usageLimit = sql.NullInt64{Int64: int64(*c.UsageLimit), Valid: true}
	}

	query := `
		INSERT INTO coupons (code, type, value, max_discount, min_order, usage_limit, used_count,
		                     start_at, end_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, NOW())
		RETURNING ` + couponColumns

	coupon, err := scanCoupon(q.QueryRowContext(ctx, query,
		NormalizeCouponCode(c.Code), c.Type, c.Value, maxDiscount, c.MinOrder, usageLimit,
		c.StartAt, c.EndAt, models.CouponStatusActive))
	if err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return coupon, nil
}

// GetCouponByCode looks a coupon up case-insensitively. With forUpdate the
// row stays locked until the surrounding transaction ends, which keeps
// used_count within usage_limit under concurrent redemptions.
func GetCouponByCode(ctx context.Context, q database.Querier, code string, forUpdate bool) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	coupon, err := scanCoupon(q.QueryRowContext(ctx, query, NormalizeCouponCode(code)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return coupon, nil
}

func IncrementCouponUsage(ctx context.Context, tx *sql.Tx, couponID int64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE coupons
		 SET used_count = used_count + 1
		 WHERE id = $1
		   AND (usage_limit IS NULL OR used_count < usage_limit)`,
		couponID)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("increment coupon usage: coupon %d exhausted", couponID)
	}
	return nil
}

func InsertCouponRedemption(ctx context.Context, tx *sql.Tx, r models.CouponRedemption) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO coupon_redemptions (coupon_id, user_id, order_id, discount_amount, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		r.CouponID, r.UserID, r.OrderID, r.DiscountAmount)
	if err != nil {
		return fmt.Errorf("create coupon redemption: %w", err)
	}
	return nil
}

func ListCouponRedemptions(ctx context.Context, q database.Querier, couponID int64) ([]models.CouponRedemption, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, coupon_id, user_id, order_id, discount_amount, created_at
		 FROM coupon_redemptions
		 WHERE coupon_id = $1
		 ORDER BY id`,
		couponID)
	if err != nil {
		return nil, fmt.Errorf("list coupon redemptions: %w", err)
	}
	defer rows.Close()

	redemptions := []models.CouponRedemption{}
	for rows.Next() {
		var r models.CouponRedemption
		if err := rows.Scan(&r.ID, &r.CouponID, &r.UserID, &r.OrderID, &r.DiscountAmount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan coupon redemption: %w", err)
		}
		redemptions = append(redemptions, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return redemptions, nil
}
