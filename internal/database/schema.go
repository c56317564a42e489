package database

import (
	"context"
	"fmt"
)

// Capabilities records which optional schema objects exist. Older databases
// predate the audit tables and the payment_status column; readers and writers
// pick their code path from these flags instead of probing per query.
type Capabilities struct {
	PaymentStatus     bool `json:"payment_status"`
	StatusHistory     bool `json:"status_history"`
	InventoryLog      bool `json:"inventory_log"`
	Coupons           bool `json:"coupons"`
	CouponRedemptions bool `json:"coupon_redemptions"`
}

// FullCapabilities describes a database with every migration applied.
func FullCapabilities() Capabilities {
	return Capabilities{
		PaymentStatus:     true,
		StatusHistory:     true,
		InventoryLog:      true,
		Coupons:           true,
		CouponRedemptions: true,
	}
}

func DetectCapabilities(ctx context.Context, q Querier) (Capabilities, error) {
	var caps Capabilities

	tables := map[string]*bool{
		"order_status_history": &caps.StatusHistory,
		"inventory_logs":       &caps.InventoryLog,
		"coupons":              &caps.Coupons,
		"coupon_redemptions":   &caps.CouponRedemptions,
	}
	for name, flag := range tables {
		exists, err := tableExists(ctx, q, name)
		if err != nil {
			return caps, err
		}
		*flag = exists
	}

	exists, err := columnExists(ctx, q, "orders", "payment_status")
	if err != nil {
		return caps, err
	}
	caps.PaymentStatus = exists

	return caps, nil
}

func tableExists(ctx context.Context, q Querier, table string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1)`,
		table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("look up table %s: %w", table, err)
	}
	return exists, nil
}

func columnExists(ctx context.Context, q Querier, table, column string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2)`,
		table, column).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("look up column %s.%s: %w", table, column, err)
	}
	return exists, nil
}
