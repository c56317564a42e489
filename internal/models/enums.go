package models

import (
	"fmt"
	"strings"

	"github.com/safar/techshop-orders/internal/database"
)

// OrderStatus is serialised upper-case everywhere; lower-case input is
// normalised at the edges by ParseOrderStatus.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

var orderStatuses = map[string]OrderStatus{
	"PENDING":    OrderStatusPending,
	"PROCESSING": OrderStatusProcessing,
	"SHIPPED":    OrderStatusShipped,
	"DELIVERED":  OrderStatusDelivered,
	"COMPLETED":  OrderStatusDelivered,
	"CANCELLED":  OrderStatusCancelled,
	"CANCELED":   OrderStatusCancelled,
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	status, ok := orderStatuses[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("%w: %q", database.ErrInvalidStatus, raw)
	}
	return status, nil
}

func (s OrderStatus) String() string { return string(s) }

// Valid reports whether s is one of the canonical statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodBank   PaymentMethod = "BANK"
	PaymentMethodWallet PaymentMethod = "WALLET"
)

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch method := PaymentMethod(strings.ToUpper(strings.TrimSpace(raw))); method {
	case PaymentMethodCOD, PaymentMethodBank, PaymentMethodWallet:
		return method, nil
	default:
		return "", fmt.Errorf("%w: %q", database.ErrInvalidPaymentMethod, raw)
	}
}

type CouponType string

const (
	CouponTypePercent CouponType = "PERCENT"
	CouponTypeFixed   CouponType = "FIXED"
)

type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "ACTIVE"
	ProductStatusInactive   ProductStatus = "INACTIVE"
	ProductStatusOutOfStock ProductStatus = "OUT_OF_STOCK"
)

type Role string

const (
	RoleUser     Role = "USER"
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
	RoleDisabled Role = "DISABLED"
)

func NormalizeRole(raw string) Role {
	switch role := Role(strings.ToUpper(strings.TrimSpace(raw))); role {
	case RoleCustomer, RoleAdmin, RoleDisabled:
		return role
	default:
		return RoleUser
	}
}
