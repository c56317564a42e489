// Package pricing holds the checkout arithmetic: shipping fee, coupon
// discount and order totals. Nothing here touches the database.
package pricing

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/techshop-orders/internal/config"
	"github.com/safar/techshop-orders/internal/models"
)

var (
	ErrCouponInactive   = errors.New("coupon is not active")
	ErrCouponNotStarted = errors.New("coupon is not yet valid")
	ErrCouponExpired    = errors.New("coupon has expired")
	ErrCouponExhausted  = errors.New("coupon usage limit reached")
	ErrCouponMinOrder   = errors.New("order total below coupon minimum")
)

var hundred = decimal.NewFromInt(100)

type Rules struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	CurrencyScale         int32
}

func NewRules(cfg config.PricingConfig) Rules {
	return Rules{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFee:           cfg.ShippingFee,
		CurrencyScale:         cfg.CurrencyScale,
	}
}

// Quote is the priced breakdown of an order.
type Quote struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shippingFee"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

func (r Rules) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(r.FreeShippingThreshold) {
		return decimal.Zero
	}
	return r.ShippingFee
}

// Quote prices an order. The discount is clamped to the subtotal before the
// shipping fee is added back, so the total can never go negative.
func (r Rules) Quote(subtotal, discount decimal.Decimal) Quote {
	discount = clamp(discount, subtotal)
	shipping := r.Shipping(subtotal)
	return Quote{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Discount:    discount,
		Total:       subtotal.Add(shipping).Sub(discount),
	}
}

// CouponDiscount evaluates coupon against a pre-shipping subtotal at now.
// A nil error means the coupon applies and the returned discount lies in
// [0, subtotal].
func (r Rules) CouponDiscount(coupon models.Coupon, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !strings.EqualFold(coupon.Status, models.CouponStatusActive) {
		return decimal.Zero, ErrCouponInactive
	}
	if now.Before(coupon.StartAt) {
		return decimal.Zero, ErrCouponNotStarted
	}
	if now.After(coupon.EndAt) {
		return decimal.Zero, ErrCouponExpired
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return decimal.Zero, ErrCouponExhausted
	}
	if subtotal.LessThan(coupon.MinOrder) {
		return decimal.Zero, ErrCouponMinOrder
	}

	var discount decimal.Decimal
	switch coupon.Type {
	case models.CouponTypePercent:
		discount = subtotal.Mul(coupon.Value).Div(hundred)
		if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
			discount = *coupon.MaxDiscount
		}
	case models.CouponTypeFixed:
		discount = coupon.Value
	}

	return clamp(discount.Round(r.CurrencyScale), subtotal), nil
}

func clamp(discount, subtotal decimal.Decimal) decimal.Decimal {
	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		return subtotal
	}
	return discount
}
