package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/models"
)

// RecordInventoryChange appends a stock delta to the inventory ledger.
// Entries are never updated or deleted.
func RecordInventoryChange(ctx context.Context, q database.Querier, entry models.InventoryLog) error {
	var referenceID sql.NullInt64
	if entry.ReferenceID != nil {
		referenceID = sql.NullInt64{Int64: *entry.ReferenceID, Valid: true}
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO inventory_logs (product_id, quantity_delta, reason, reference_id, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		entry.ProductID, entry.QuantityDelta, entry.Reason, referenceID, entry.Note)
	if err != nil {
		return fmt.Errorf("record inventory change: %w", err)
	}
	return nil
}

func ListInventoryLogs(ctx context.Context, q database.Querier, productID int64) ([]models.InventoryLog, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, product_id, quantity_delta, reason, reference_id, note, created_at
		 FROM inventory_logs
		 WHERE product_id = $1
		 ORDER BY id`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("list inventory logs: %w", err)
	}
	defer rows.Close()

	logs := []models.InventoryLog{}
	for rows.Next() {
		var entry models.InventoryLog
		var referenceID sql.NullInt64
		err := rows.Scan(
			&entry.ID,
			&entry.ProductID,
			&entry.QuantityDelta,
			&entry.Reason,
			&referenceID,
			&entry.Note,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan inventory log: %w", err)
		}
		if referenceID.Valid {
			entry.ReferenceID = &referenceID.Int64
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return logs, nil
}
