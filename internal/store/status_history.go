package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/models"
)

func RecordStatusChange(ctx context.Context, q database.Querier, entry models.OrderStatusHistory) error {
	var fromStatus sql.NullString
	if entry.FromStatus != nil {
		fromStatus = sql.NullString{String: string(*entry.FromStatus), Valid: true}
	}
	var changedBy sql.NullInt64
	if entry.ChangedBy != nil {
		changedBy = sql.NullInt64{Int64: *entry.ChangedBy, Valid: true}
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO order_status_history (order_id, from_status, to_status, changed_by, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		entry.OrderID, fromStatus, entry.ToStatus, changedBy, entry.Note)
	if err != nil {
		return fmt.Errorf("record status change: %w", err)
	}
	return nil
}

func ListStatusHistory(ctx context.Context, q database.Querier, orderID int64) ([]models.OrderStatusHistory, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, from_status, to_status, changed_by, note, created_at
		 FROM order_status_history
		 WHERE order_id = $1
		 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	history := []models.OrderStatusHistory{}
	for rows.Next() {
		var entry models.OrderStatusHistory
		var fromStatus sql.NullString
		var changedBy sql.NullInt64
		err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&fromStatus,
			&entry.ToStatus,
			&changedBy,
			&entry.Note,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		if fromStatus.Valid {
			status := models.OrderStatus(fromStatus.String)
			entry.FromStatus = &status
		}
		if changedBy.Valid {
			entry.ChangedBy = &changedBy.Int64
		}
		history = append(history, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return history, nil
}
