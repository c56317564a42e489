package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/models"
	"github.com/shopspring/decimal"
)

// NewOrderNumber returns a sortable, human-quotable order reference.
func NewOrderNumber() string {
	return "ORD-" + ulid.Make().String()
}

type NewOrder struct {
	OrderNumber     string
	CustomerID      int64
	PaymentMethod   models.PaymentMethod
	ShippingAddress string
	Note            string
}

// InsertOrderSkeleton inserts a PENDING order with zeroed money columns and
// returns its id. The caller fills in the totals with FinalizeOrder once the
// lines and discount are known, inside the same transaction.
func InsertOrderSkeleton(ctx context.Context, tx *sql.Tx, o NewOrder) (int64, error) {
	var orderID int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, customer_id, status, payment_method, shipping_address, note,
		                     subtotal, shipping_fee, discount_total, total_amount, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, 0, NOW(), NOW(), 1)
		 RETURNING id`,
		o.OrderNumber, o.CustomerID, models.OrderStatusPending, o.PaymentMethod, o.ShippingAddress, o.Note).Scan(&orderID)
	if err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}
	return orderID, nil
}

func InsertOrderItem(ctx context.Context, tx *sql.Tx, orderID, productID int64, quantity int, unitPrice decimal.Decimal) error {
	lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))

	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		orderID, productID, quantity, unitPrice, lineTotal)
	if err != nil {
		return fmt.Errorf("create order item: %w", err)
	}
	return nil
}

type OrderTotals struct {
	Subtotal      decimal.Decimal
	ShippingFee   decimal.Decimal
	DiscountTotal decimal.Decimal
	Total         decimal.Decimal
}

// FinalizeOrder writes the final money columns. withPaymentStatus is set
// when the schema carries orders.payment_status.
func FinalizeOrder(ctx context.Context, tx *sql.Tx, orderID int64, totals OrderTotals, withPaymentStatus bool) error {
	query := `
		UPDATE orders
		SET subtotal = $1, shipping_fee = $2, discount_total = $3, total_amount = $4,
		    status = $5, updated_at = NOW()
		WHERE id = $6`
	args := []any{totals.Subtotal, totals.ShippingFee, totals.DiscountTotal, totals.Total, models.OrderStatusPending, orderID}

	if withPaymentStatus {
		query = `
		UPDATE orders
		SET subtotal = $1, shipping_fee = $2, discount_total = $3, total_amount = $4,
		    status = $5, payment_status = $7, updated_at = NOW()
		WHERE id = $6`
		args = append(args, models.PaymentStatusPending)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("finalize order: %w", err)
	}
	return nil
}

// LockOrderStatus reads the current status of an order under a row lock.
func LockOrderStatus(ctx context.Context, tx *sql.Tx, orderID int64) (models.OrderStatus, error) {
	var status models.OrderStatus
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id = $1 FOR UPDATE`,
		orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", database.ErrOrderNotFound
		}
		return "", fmt.Errorf("lock order: %w", err)
	}
	return status, nil
}

func UpdateOrderStatus(ctx context.Context, tx *sql.Tx, orderID int64, status models.OrderStatus) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2`,
		status, orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}
	return nil
}

func ListOrderItems(ctx context.Context, q database.Querier, orderID int64) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price, oi.subtotal, oi.created_at
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = $1
		 ORDER BY oi.id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}
