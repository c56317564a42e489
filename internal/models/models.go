package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int       `json:"version"`
}

// Customer is the purchasing profile bound to a user account. It is created
// the first time the user places an order.
type Customer struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Product struct {
	ID            int64            `json:"id"`
	SKU           string           `json:"sku"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	StockQuantity int              `json:"stock"`
	Status        ProductStatus    `json:"status"`
	CategoryID    *int64           `json:"categoryId,omitempty"`
	BrandID       *int64           `json:"brandId,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	Version       int              `json:"version"`
}

type Order struct {
	ID              int64                `json:"id"`
	OrderNumber     string               `json:"orderNumber"`
	CustomerID      int64                `json:"customerId"`
	UserID          int64                `json:"userId"`
	Status          OrderStatus          `json:"status"`
	PaymentMethod   PaymentMethod        `json:"paymentMethod"`
	PaymentStatus   string               `json:"paymentStatus,omitempty"`
	ShippingAddress string               `json:"shippingAddress"`
	Note            string               `json:"note,omitempty"`
	Subtotal        decimal.Decimal      `json:"subtotal"`
	ShippingFee     decimal.Decimal      `json:"shippingFee"`
	DiscountTotal   decimal.Decimal      `json:"discountTotal"`
	TotalAmount     decimal.Decimal      `json:"total"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
	Version         int                  `json:"version"`
	Customer        *Customer            `json:"customer,omitempty"`
	Items           []OrderItem          `json:"items,omitempty"`
	History         []OrderStatusHistory `json:"history,omitempty"`
}

// BalancesTotal checks total = subtotal + shippingFee - discountTotal.
func (o Order) BalancesTotal() bool {
	return o.Subtotal.Add(o.ShippingFee).Sub(o.DiscountTotal).Equal(o.TotalAmount)
}

type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"orderId"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"lineTotal"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type Coupon struct {
	ID          int64            `json:"id"`
	Code        string           `json:"code"`
	Type        CouponType       `json:"type"`
	Value       decimal.Decimal  `json:"value"`
	MaxDiscount *decimal.Decimal `json:"maxDiscount,omitempty"`
	MinOrder    decimal.Decimal  `json:"minOrder"`
	UsageLimit  *int             `json:"usageLimit,omitempty"`
	UsedCount   int              `json:"usedCount"`
	StartAt     time.Time        `json:"startAt"`
	EndAt       time.Time        `json:"endAt"`
	Status      string           `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type CouponRedemption struct {
	ID             int64           `json:"id"`
	CouponID       int64           `json:"couponId"`
	UserID         int64           `json:"userId"`
	OrderID        int64           `json:"orderId"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type InventoryLog struct {
	ID            int64     `json:"id"`
	ProductID     int64     `json:"productId"`
	QuantityDelta int       `json:"quantityDelta"`
	Reason        string    `json:"reason"`
	ReferenceID   *int64    `json:"referenceId,omitempty"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type OrderStatusHistory struct {
	ID         int64        `json:"id"`
	OrderID    int64        `json:"orderId"`
	FromStatus *OrderStatus `json:"fromStatus"`
	ToStatus   OrderStatus  `json:"toStatus"`
	ChangedBy  *int64       `json:"changedBy,omitempty"`
	Note       string       `json:"note,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

const (
	InventoryReasonOrder       = "order"
	InventoryReasonCancelOrder = "order_cancel"
)

const (
	PaymentStatusPending = "PENDING"
)

const CouponStatusActive = "ACTIVE"
