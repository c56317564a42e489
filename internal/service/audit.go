package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/models"
	"github.com/safar/techshop-orders/internal/store"
)

// auditTrail writes inventory and status-history rows on a best-effort basis.
// A failed audit write is rolled back to its savepoint and logged; it never
// aborts the business transaction around it.
type auditTrail struct {
	caps   database.Capabilities
	logger *zap.Logger
}

func (a auditTrail) inventory(ctx context.Context, tx *sql.Tx, entry models.InventoryLog) {
	if !a.caps.InventoryLog {
		return
	}

	err := database.WithSavepoint(ctx, tx, "inventory_log", func() error {
		return store.RecordInventoryChange(ctx, tx, entry)
	})
	if err != nil {
		a.logger.Warn("inventory log skipped",
			zap.Int64("product_id", entry.ProductID),
			zap.Int("delta", entry.QuantityDelta),
			zap.String("reason", entry.Reason),
			zap.Error(err))
	}
}

func (a auditTrail) statusChange(ctx context.Context, tx *sql.Tx, entry models.OrderStatusHistory) {
	if !a.caps.StatusHistory {
		return
	}

	err := database.WithSavepoint(ctx, tx, "status_history", func() error {
		return store.RecordStatusChange(ctx, tx, entry)
	})
	if err != nil {
		a.logger.Warn("status history skipped",
			zap.Int64("order_id", entry.OrderID),
			zap.String("to_status", string(entry.ToStatus)),
			zap.Error(err))
	}
}
