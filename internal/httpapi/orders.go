package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/safar/techshop-orders/internal/auth"
	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/models"
	"github.com/safar/techshop-orders/internal/service"
)

const maxCursorLimit = 100

type orderItemBody struct {
	ProductID int64 `json:"productId" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gt=0,lte=2147483647"`
}

type createOrderBody struct {
	Items           []orderItemBody `json:"items" validate:"dive"`
	ShippingAddress string          `json:"shippingAddress" validate:"required,max=500"`
	PaymentMethod   string          `json:"paymentMethod" validate:"required"`
	CouponCode      string          `json:"couponCode" validate:"max=64"`
	Note            string          `json:"note" validate:"max=1000"`
}

type setStatusBody struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=1000"`
}

type orderHandlers struct {
	orders OrderService
}

func (h *orderHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	var body createOrderBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]service.OrderItemRequest, 0, len(body.Items))
	for _, item := range body.Items {
		items = append(items, service.OrderItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.orders.CreateOrder(ctx, service.CreateOrderRequest{
		UserID:          identity.UserID,
		Items:           items,
		ShippingAddress: body.ShippingAddress,
		PaymentMethod:   body.PaymentMethod,
		CouponCode:      body.CouponCode,
		Note:            body.Note,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, order)
}

func (h *orderHandlers) setStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	id, err := pathID(r, "id")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var body setStatusBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(ctx, w, err)
		return
	}

	status, err := models.ParseOrderStatus(body.Status)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	actor := identity.UserID
	if err := h.orders.SetStatus(ctx, id, status, &actor, body.Note); err != nil {
		writeError(ctx, w, err)
		return
	}

	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if order == nil {
		writeError(ctx, w, database.ErrOrderNotFound)
		return
	}
	respondJSON(ctx, w, http.StatusOK, order)
}

// get serves owners and admins; anyone else sees a 404 so order ids cannot
// be enumerated.
func (h *orderHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	id, err := pathID(r, "id")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if order == nil || !identity.CanView(order.UserID) {
		writeError(ctx, w, database.ErrOrderNotFound)
		return
	}
	respondJSON(ctx, w, http.StatusOK, order)
}

// mine returns the caller's full history, or a keyset page when cursor or
// limit is given.
func (h *orderHandlers) mine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)
	query := r.URL.Query()

	cursor := strings.TrimSpace(query.Get("cursor"))
	rawLimit := strings.TrimSpace(query.Get("limit"))
	if cursor == "" && rawLimit == "" {
		orders, err := h.orders.ListOrdersByUser(ctx, identity.UserID)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, orders)
		return
	}

	limit := 20
	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n < 1 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		limit = min(n, maxCursorLimit)
	}

	page, err := h.orders.ListOrdersCursor(ctx, identity.UserID, cursor, limit)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, page)
}

func (h *orderHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, pageSize := pagination(r)

	result, err := h.orders.ListOrders(ctx, page, pageSize)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, result)
}
