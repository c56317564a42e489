package store

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/models"
	"github.com/safar/techshop-orders/internal/testutil"
)

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx) error) error {
	t.Helper()
	return database.WithTransaction(context.Background(), db, database.DefaultTxOptions(), fn)
}

func TestUpdateProductPriceOptimisticLock(t *testing.T) {
	db := testutil.SetupDB(t)
	ctx := context.Background()

	product, err := CreateProduct(ctx, db, "TEST-002", "Test Product 2", "Test", decimal.NewFromInt(100), 50)
	require.NoError(t, err)

	updated, err := UpdateProductPrice(ctx, db, product.ID, decimal.NewFromInt(120), product.Version)
	require.NoError(t, err)
	assert.Equal(t, product.Version+1, updated.Version)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(120)))

	_, err = UpdateProductPrice(ctx, db, product.ID, decimal.NewFromInt(90), product.Version)
	assert.ErrorIs(t, err, database.ErrOptimisticLockFailed)

	_, err = UpdateProductPrice(ctx, db, product.ID+1000, decimal.NewFromInt(90), 1)
	assert.ErrorIs(t, err, database.ErrProductNotFound)
}

func TestDecrementStockNeverGoesNegative(t *testing.T) {
	db := testutil.SetupDB(t)
	ctx := context.Background()

	product, err := CreateProduct(ctx, db, "TEST-001", "Test Product", "Test", decimal.NewFromInt(100), 10)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := inTx(t, db, func(tx *sql.Tx) error {
				return DecrementStock(ctx, tx, product.ID, 2)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	final, err := GetProduct(ctx, db, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, final.StockQuantity)

	err = inTx(t, db, func(tx *sql.Tx) error { return DecrementStock(ctx, tx, product.ID, 1) })
	assert.ErrorIs(t, err, database.ErrInsufficientStock)
}

func TestLockProductsSkipsMissing(t *testing.T) {
	db := testutil.SetupDB(t)
	ctx := context.Background()

	a, err := CreateProduct(ctx, db, "LOCK-A", "A", "", decimal.NewFromInt(10), 1)
	require.NoError(t, err)
	b, err := CreateProduct(ctx, db, "LOCK-B", "B", "", decimal.NewFromInt(20), 2)
	require.NoError(t, err)

	err = inTx(t, db, func(tx *sql.Tx) error {
		locked, err := LockProducts(ctx, tx, []int64{a.ID, b.ID, b.ID + 500})
		require.NoError(t, err)
		assert.Len(t, locked, 2)
		assert.Equal(t, 2, locked[b.ID].StockQuantity)
		return nil
	})
	require.NoError(t, err)
}

func TestEnsureCustomerReusesProfile(t *testing.T) {
	db := testutil.SetupDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, db, "lan@example.com", "Lan", models.RoleUser)
	require.NoError(t, err)

	var first, second *models.Customer
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		first, err = EnsureCustomer(ctx, tx, user.ID)
		return err
	}))
	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error {
		second, err = EnsureCustomer(ctx, tx, user.ID)
		return err
	}))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "lan@example.com", second.Email)

	err = inTx(t, db, func(tx *sql.Tx) error {
		_, err := EnsureCustomer(ctx, tx, user.ID+1000)
		return err
	})
	assert.ErrorIs(t, err, database.ErrUserNotFound)
}

func TestCouponUsageLimit(t *testing.T) {
	db := testutil.SetupDB(t)
	ctx := context.Background()

	limit := 1
	coupon, err := CreateCoupon(ctx, db, NewCoupon{
		Code:       " once ",
		Type:       models.CouponTypeFixed,
		Value:      decimal.NewFromInt(5000),
		UsageLimit: &limit,
		StartAt:    time.Now().Add(-time.Hour),
		EndAt:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "ONCE", coupon.Code)

	found, err := GetCouponByCode(ctx, db, "Once", false)
	require.NoError(t, err)
	assert.Equal(t, coupon.ID, found.ID)

	_, err = GetCouponByCode(ctx, db, "NOPE", false)
	assert.ErrorIs(t, err, database.ErrCouponNotFound)

	require.NoError(t, inTx(t, db, func(tx *sql.Tx) error { return IncrementCouponUsage(ctx, tx, coupon.ID) }))
	assert.Error(t, inTx(t, db, func(tx *sql.Tx) error { return IncrementCouponUsage(ctx, tx, coupon.ID) }))

	found, err = GetCouponByCode(ctx, db, "ONCE", false)
	require.NoError(t, err)
	assert.Equal(t, 1, found.UsedCount)
}

func TestListUsers(t *testing.T) {
	db := testutil.SetupDB(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := CreateUser(ctx, db, email, email, models.RoleUser)
		require.NoError(t, err)
	}

	page, err := ListUsers(ctx, db, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)

	_, err = CreateUser(ctx, db, "a@example.com", "dup", models.RoleUser)
	assert.True(t, database.IsConstraintViolation(err))
}
