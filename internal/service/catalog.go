package service

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/techshop-orders/internal/logging"
	"github.com/safar/techshop-orders/internal/models"
	"github.com/safar/techshop-orders/internal/store"
)

type NewProduct struct {
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// Catalog is the product surface the storefront needs next to checkout.
type Catalog struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewCatalog(db *sql.DB, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{db: db, logger: logger}
}

func (c *Catalog) ListProducts(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.Product], error) {
	return store.ListProducts(ctx, c.db, page, pageSize)
}

func (c *Catalog) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return store.GetProduct(ctx, c.db, id)
}

func (c *Catalog) CreateProduct(ctx context.Context, p NewProduct) (*models.Product, error) {
	product, err := store.CreateProduct(ctx, c.db, p.SKU, p.Name, p.Description, p.Price, p.Stock)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx, c.logger).Info("product created", zap.Int64("product_id", product.ID), zap.String("sku", product.SKU))
	return product, nil
}

// UpdatePrice changes the list price if version is still current. Orders
// already placed keep their captured unit price.
func (c *Catalog) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal, version int) (*models.Product, error) {
	product, err := store.UpdateProductPrice(ctx, c.db, id, price, version)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx, c.logger).Info("product price updated",
		zap.Int64("product_id", id),
		zap.String("price", price.String()),
		zap.Int("version", product.Version))
	return product, nil
}
