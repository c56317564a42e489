package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/models"
)

const orderColumns = `o.id, o.order_number, o.customer_id, c.user_id, o.status, o.payment_method,
	o.shipping_address, o.note, o.subtotal, o.shipping_fee, o.discount_total, o.total_amount,
	o.created_at, o.updated_at, o.version,
	c.id, c.user_id, c.name, c.email, c.phone, c.created_at`

// orderSelect picks the column list for the detected schema variant.
func orderSelect(caps database.Capabilities) string {
	if caps.PaymentStatus {
		return orderColumns + `, COALESCE(o.payment_status, '')`
	}
	return orderColumns
}

func scanOrder(row rowScanner, caps database.Capabilities) (*models.Order, error) {
	order := &models.Order{Customer: &models.Customer{}}
	dest := []any{
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.UserID,
		&order.Status,
		&order.PaymentMethod,
		&order.ShippingAddress,
		&order.Note,
		&order.Subtotal,
		&order.ShippingFee,
		&order.DiscountTotal,
		&order.TotalAmount,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
		&order.Customer.ID,
		&order.Customer.UserID,
		&order.Customer.Name,
		&order.Customer.Email,
		&order.Customer.Phone,
		&order.Customer.CreatedAt,
	}
	if caps.PaymentStatus {
		dest = append(dest, &order.PaymentStatus)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder returns the order with its customer, line items and, when the
// schema has it, status history. A missing order yields (nil, nil). q must
// not be a transaction when the history table may have disappeared.
func GetOrder(ctx context.Context, q database.Querier, id int64, caps database.Capabilities) (*models.Order, error) {
	query := `
		SELECT ` + orderSelect(caps) + `
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1`

	order, err := scanOrder(q.QueryRowContext(ctx, query, id), caps)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := ListOrderItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	if caps.StatusHistory {
		history, err := ListStatusHistory(ctx, q, id)
		switch {
		case err == nil:
			order.History = history
		case database.IsUndefinedObject(err):
			// history table dropped after startup detection
		default:
			return nil, err
		}
	}

	return order, nil
}

// ListOrders is the administrative listing of every order, newest first.
func ListOrders(ctx context.Context, q database.Querier, page, pageSize int, caps database.Capabilities) (*OffsetPage[models.Order], error) {
	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + orderSelect(caps) + `
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $1 OFFSET $2`

	orders, err := queryOrders(ctx, q, caps, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return newOffsetPage(orders, total, page, pageSize), nil
}

// ListOrdersByUser returns every order placed by userID, newest first, with
// line items attached. Users who never ordered get an empty slice.
func ListOrdersByUser(ctx context.Context, q database.Querier, userID int64, caps database.Capabilities) ([]models.Order, error) {
	query := `
		SELECT ` + orderSelect(caps) + `
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE c.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC`

	orders, err := queryOrders(ctx, q, caps, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}

	for i := range orders {
		items, err := ListOrderItems(ctx, q, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func ListOrdersCursor(ctx context.Context, q database.Querier, userID int64, cursor string, limit int, caps database.Capabilities) (*CursorPage[models.Order], error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + orderSelect(caps) + `
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE c.user_id = $1
		  AND (o.created_at, o.id) < ($2, $3)
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $4`

	orders, err := queryOrders(ctx, q, caps, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage[models.Order]{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func queryOrders(ctx context.Context, q database.Querier, caps database.Capabilities, query string, args ...any) ([]models.Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows, caps)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}
