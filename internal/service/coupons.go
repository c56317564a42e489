package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/models"
	"github.com/safar/techshop-orders/internal/pricing"
	"github.com/safar/techshop-orders/internal/store"
)

// CouponEngine evaluates and redeems coupon codes.
type CouponEngine struct {
	db     *sql.DB
	rules  pricing.Rules
	caps   database.Capabilities
	logger *zap.Logger
	now    func() time.Time
}

func NewCouponEngine(db *sql.DB, rules pricing.Rules, caps database.Capabilities, logger *zap.Logger, now func() time.Time) *CouponEngine {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CouponEngine{db: db, rules: rules, caps: caps, logger: logger, now: now}
}

// Apply redeems code against orderID inside tx and returns the discount.
// It never fails: an unknown, inactive, expired, exhausted or inapplicable
// code yields zero and leaves the coupon untouched.
func (e *CouponEngine) Apply(ctx context.Context, tx *sql.Tx, code string, userID int64, subtotal decimal.Decimal, orderID int64) decimal.Decimal {
	if strings.TrimSpace(code) == "" || !e.caps.Coupons {
		return decimal.Zero
	}

	var discount decimal.Decimal
	err := database.WithSavepoint(ctx, tx, "coupon_apply", func() error {
		coupon, err := store.GetCouponByCode(ctx, tx, code, true)
		if err != nil {
			return err
		}

		amount, err := e.rules.CouponDiscount(*coupon, subtotal, e.now())
		if err != nil {
			return err
		}

		if err := store.IncrementCouponUsage(ctx, tx, coupon.ID); err != nil {
			return err
		}

		if e.caps.CouponRedemptions {
			err := store.InsertCouponRedemption(ctx, tx, models.CouponRedemption{
				CouponID:       coupon.ID,
				UserID:         userID,
				OrderID:        orderID,
				DiscountAmount: amount,
			})
			if err != nil {
				return err
			}
		}

		discount = amount
		return nil
	})
	if err != nil {
		level := e.logger.Warn
		if isCouponRejection(err) {
			level = e.logger.Info
		}
		level("coupon not applied",
			zap.String("code", store.NormalizeCouponCode(code)),
			zap.Int64("order_id", orderID),
			zap.Error(err))
		return decimal.Zero
	}

	return discount
}

// CouponPreview is the outcome of a successful Validate.
type CouponPreview struct {
	Coupon     *models.Coupon  `json:"coupon"`
	Discount   decimal.Decimal `json:"discountAmount"`
	FinalTotal decimal.Decimal `json:"finalTotal"`
}

// Validate evaluates code against orderTotal without redeeming it. Unlike
// Apply it reports why a code was rejected.
func (e *CouponEngine) Validate(ctx context.Context, code string, orderTotal decimal.Decimal) (*CouponPreview, error) {
	if !e.caps.Coupons {
		return nil, database.ErrCouponNotFound
	}

	coupon, err := store.GetCouponByCode(ctx, e.db, code, false)
	if err != nil {
		return nil, err
	}

	discount, err := e.rules.CouponDiscount(*coupon, orderTotal, e.now())
	if err != nil {
		if errors.Is(err, pricing.ErrCouponInactive) {
			return nil, database.ErrCouponNotFound
		}
		return nil, err
	}

	return &CouponPreview{
		Coupon:     coupon,
		Discount:   discount,
		FinalTotal: orderTotal.Sub(discount),
	}, nil
}

func isCouponRejection(err error) bool {
	return errors.Is(err, database.ErrCouponNotFound) ||
		errors.Is(err, pricing.ErrCouponInactive) ||
		errors.Is(err, pricing.ErrCouponNotStarted) ||
		errors.Is(err, pricing.ErrCouponExpired) ||
		errors.Is(err, pricing.ErrCouponExhausted) ||
		errors.Is(err, pricing.ErrCouponMinOrder)
}
