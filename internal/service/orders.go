// Package service runs the order transactions: checkout, status changes and
// the cached order reads built on top of the store package.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/techshop-orders/internal/cache"
	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/logging"
	"github.com/safar/techshop-orders/internal/models"
	"github.com/safar/techshop-orders/internal/pricing"
	"github.com/safar/techshop-orders/internal/store"
)

type OrderItemRequest struct {
	ProductID int64
	Quantity  int
}

type CreateOrderRequest struct {
	UserID          int64
	Items           []OrderItemRequest
	ShippingAddress string
	PaymentMethod   string
	CouponCode      string
	Note            string
}

type OrderService struct {
	db      *sql.DB
	logger  *zap.Logger
	rules   pricing.Rules
	caps    database.Capabilities
	cache   *cache.OrderCache
	coupons *CouponEngine
	audit   auditTrail
	txOpts  database.TxOptions
	now     func() time.Time
}

type Option func(*OrderService)

// WithCache enables the order detail cache.
func WithCache(c *cache.OrderCache) Option {
	return func(s *OrderService) { s.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

func WithTxOptions(opts database.TxOptions) Option {
	return func(s *OrderService) { s.txOpts = opts }
}

func NewOrderService(db *sql.DB, logger *zap.Logger, rules pricing.Rules, caps database.Capabilities, opts ...Option) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &OrderService{
		db:     db,
		logger: logger,
		rules:  rules,
		caps:   caps,
		txOpts: database.DefaultTxOptions(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.audit = auditTrail{caps: caps, logger: logger}
	s.coupons = NewCouponEngine(db, rules, caps, logger, s.now)
	return s
}

// Coupons exposes the engine used at checkout for previews.
func (s *OrderService) Coupons() *CouponEngine {
	return s.coupons
}

// MaxLineQuantity is the largest quantity one product may carry in an order,
// the range of the INTEGER quantity and stock columns.
const MaxLineQuantity = math.MaxInt32

type orderLine struct {
	productID int64
	quantity  int
}

// normalizeItems validates quantities and merges repeated product ids,
// returning the lines sorted by product id. Both each requested line and the
// merged quantity per product must stay within MaxLineQuantity.
func normalizeItems(items []OrderItemRequest) ([]orderLine, error) {
	if len(items) == 0 {
		return nil, database.ErrEmptyOrder
	}

	merged := make(map[int64]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d", database.ErrInvalidQuantity, item.ProductID)
		}
		if item.Quantity > MaxLineQuantity || merged[item.ProductID] > MaxLineQuantity-item.Quantity {
			return nil, fmt.Errorf("%w: product %d exceeds %d units", database.ErrInvalidQuantity, item.ProductID, MaxLineQuantity)
		}
		merged[item.ProductID] += item.Quantity
	}

	lines := make([]orderLine, 0, len(merged))
	for id, qty := range merged {
		lines = append(lines, orderLine{productID: id, quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].productID < lines[j].productID })
	return lines, nil
}

// CreateOrder places an order in a single transaction. Either every product
// is decremented and the order with all its lines exists, or nothing changed.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	logger := logging.FromContext(ctx, s.logger)

	lines, err := normalizeItems(req.Items)
	if err != nil {
		return nil, err
	}

	method, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(lines))
	for i, line := range lines {
		ids[i] = line.productID
	}

	var orderID int64
	err = database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		customer, err := store.EnsureCustomer(ctx, tx, req.UserID)
		if err != nil {
			return err
		}

		products, err := store.LockProducts(ctx, tx, ids)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		for _, line := range lines {
			product, ok := products[line.productID]
			if !ok {
				return fmt.Errorf("%w: %d", database.ErrProductNotFound, line.productID)
			}
			if line.quantity > product.StockQuantity {
				return fmt.Errorf("%w: %s", database.ErrInsufficientStock, product.Name)
			}
			subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(line.quantity))))
		}

		orderID, err = store.InsertOrderSkeleton(ctx, tx, store.NewOrder{
			OrderNumber:     store.NewOrderNumber(),
			CustomerID:      customer.ID,
			PaymentMethod:   method,
			ShippingAddress: strings.TrimSpace(req.ShippingAddress),
			Note:            strings.TrimSpace(req.Note),
		})
		if err != nil {
			return err
		}

		discount := s.coupons.Apply(ctx, tx, req.CouponCode, req.UserID, subtotal, orderID)
		quote := s.rules.Quote(subtotal, discount)

		for _, line := range lines {
			product := products[line.productID]
			if err := store.InsertOrderItem(ctx, tx, orderID, product.ID, line.quantity, product.Price); err != nil {
				return err
			}
		}

		for _, line := range lines {
			if err := store.DecrementStock(ctx, tx, line.productID, line.quantity); err != nil {
				return fmt.Errorf("%w: %s", err, products[line.productID].Name)
			}
			ref := orderID
			s.audit.inventory(ctx, tx, models.InventoryLog{
				ProductID:     line.productID,
				QuantityDelta: -line.quantity,
				Reason:        models.InventoryReasonOrder,
				ReferenceID:   &ref,
			})
		}

		err = store.FinalizeOrder(ctx, tx, orderID, store.OrderTotals{
			Subtotal:      quote.Subtotal,
			ShippingFee:   quote.ShippingFee,
			DiscountTotal: quote.Discount,
			Total:         quote.Total,
		}, s.caps.PaymentStatus)
		if err != nil {
			return err
		}

		s.audit.statusChange(ctx, tx, models.OrderStatusHistory{
			OrderID:   orderID,
			ToStatus:  models.OrderStatusPending,
			ChangedBy: &req.UserID,
			Note:      "order placed",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("order created", zap.Int64("order_id", orderID), zap.Int64("user_id", req.UserID))

	order, err := store.GetOrder(ctx, s.db, orderID, s.caps)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, database.ErrOrderNotFound
	}
	return order, nil
}

// SetStatus moves an order to status. Entering CANCELLED puts every line's
// quantity back on the shelf. Cancelling a cancelled order changes no stock,
// and a cancelled order cannot move to any other status.
func (s *OrderService) SetStatus(ctx context.Context, orderID int64, status models.OrderStatus, actorID *int64, note string) error {
	logger := logging.FromContext(ctx, s.logger)

	if !status.Valid() {
		return database.ErrInvalidStatus
	}

	var from models.OrderStatus
	err := database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		current, err := store.LockOrderStatus(ctx, tx, orderID)
		if err != nil {
			return err
		}
		from = current

		if current == models.OrderStatusCancelled && status != models.OrderStatusCancelled {
			return fmt.Errorf("%w: order %d is cancelled", database.ErrInvalidTransition, orderID)
		}

		if status == models.OrderStatusCancelled && current != models.OrderStatusCancelled {
			items, err := store.ListOrderItems(ctx, tx, orderID)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := store.IncrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
				ref := orderID
				s.audit.inventory(ctx, tx, models.InventoryLog{
					ProductID:     item.ProductID,
					QuantityDelta: item.Quantity,
					Reason:        models.InventoryReasonCancelOrder,
					ReferenceID:   &ref,
				})
			}
		}

		if err := store.UpdateOrderStatus(ctx, tx, orderID, status); err != nil {
			return err
		}

		s.audit.statusChange(ctx, tx, models.OrderStatusHistory{
			OrderID:    orderID,
			FromStatus: &current,
			ToStatus:   status,
			ChangedBy:  actorID,
			Note:       strings.TrimSpace(note),
		})
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx, orderID); err != nil {
		logger.Warn("order cache invalidation failed", zap.Int64("order_id", orderID), zap.Error(err))
	}

	logger.Info("order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(status)))
	return nil
}

// GetOrder returns the order detail, or nil when no such order exists.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	logger := logging.FromContext(ctx, s.logger)

	cached, ok, err := s.cache.Get(ctx, orderID)
	if err != nil {
		logger.Warn("order cache read failed", zap.Int64("order_id", orderID), zap.Error(err))
	}
	if ok {
		return cached, nil
	}

	order, err := s.cache.Fill(ctx, orderID, func(ctx context.Context) (*models.Order, error) {
		return store.GetOrder(ctx, s.db, orderID, s.caps)
	})
	if errors.Is(err, cache.ErrUnavailable) {
		logger.Warn("order cache write failed", zap.Int64("order_id", orderID), zap.Error(err))
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.Order], error) {
	return store.ListOrders(ctx, s.db, page, pageSize, s.caps)
}

func (s *OrderService) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	return store.ListOrdersByUser(ctx, s.db, userID, s.caps)
}

func (s *OrderService) ListOrdersCursor(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage[models.Order], error) {
	return store.ListOrdersCursor(ctx, s.db, userID, cursor, limit, s.caps)
}
