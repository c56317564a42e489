package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/service"
)

type productHandlers struct {
	products ProductCatalog
}

type createProductBody struct {
	SKU         string          `json:"sku" validate:"required,max=64"`
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

type updatePriceBody struct {
	Price   decimal.Decimal `json:"price"`
	Version int             `json:"version" validate:"gt=0"`
}

func (h *productHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, pageSize := pagination(r)

	result, err := h.products.ListProducts(ctx, page, pageSize)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, result)
}

func (h *productHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	product, err := h.products.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			writeErrorStatus(ctx, w, http.StatusNotFound, err)
			return
		}
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, product)
}

func (h *productHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body createProductBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(ctx, w, err)
		return
	}
	if body.Price.IsNegative() {
		respondError(ctx, w, http.StatusBadRequest, "price must not be negative")
		return
	}

	product, err := h.products.CreateProduct(ctx, service.NewProduct{
		SKU:         body.SKU,
		Name:        body.Name,
		Description: body.Description,
		Price:       body.Price,
		Stock:       body.Stock,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, product)
}

func (h *productHandlers) updatePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var body updatePriceBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(ctx, w, err)
		return
	}
	if body.Price.IsNegative() {
		respondError(ctx, w, http.StatusBadRequest, "price must not be negative")
		return
	}

	product, err := h.products.UpdatePrice(ctx, id, body.Price, body.Version)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			writeErrorStatus(ctx, w, http.StatusNotFound, err)
			return
		}
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, product)
}

type couponHandlers struct {
	coupons CouponValidator
}

type validateCouponBody struct {
	Code       string          `json:"code" validate:"required,max=64"`
	OrderTotal decimal.Decimal `json:"orderTotal"`
}

type couponPreviewResponse struct {
	Valid bool `json:"valid"`
	*service.CouponPreview
}

func (h *couponHandlers) validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body validateCouponBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(ctx, w, err)
		return
	}

	preview, err := h.coupons.Validate(ctx, body.Code, body.OrderTotal)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, couponPreviewResponse{Valid: true, CouponPreview: preview})
}

type healthHandlers struct {
	db Pinger
}

func (h *healthHandlers) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			respondError(r.Context(), w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
