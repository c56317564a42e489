package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/techshop-orders/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*OrderCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewOrderCache(client, ttl), mr
}

func loaderOf(order *models.Order, calls *int) func(context.Context) (*models.Order, error) {
	return func(context.Context) (*models.Order, error) {
		*calls++
		return order, nil
	}
}

func TestOrderCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	order := &models.Order{
		ID:          42,
		OrderNumber: "ORD-TEST",
		Status:      models.OrderStatusPending,
		Subtotal:    decimal.NewFromInt(300000),
		ShippingFee: decimal.NewFromInt(50000),
		TotalAmount: decimal.NewFromInt(350000),
		Items: []models.OrderItem{
			{ProductID: 7, Quantity: 3, UnitPrice: decimal.NewFromInt(100000), Subtotal: decimal.NewFromInt(300000)},
		},
	}
	calls := 0
	filled, err := c.Fill(ctx, 42, loaderOf(order, &calls))
	require.NoError(t, err)
	assert.Same(t, order, filled)
	assert.Equal(t, 1, calls)

	got, ok, err := c.Get(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ORD-TEST", got.OrderNumber)
	assert.True(t, got.TotalAmount.Equal(order.TotalAmount))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.Items[0].Quantity)
}

func TestOrderCacheMissAndInvalidate(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	calls := 0
	_, err = c.Fill(ctx, 1, loaderOf(&models.Order{ID: 1}, &calls))
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, 1))

	_, ok, err = c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrderCacheSkipsFillRacingInvalidate(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	stale := &models.Order{ID: 3, Status: models.OrderStatusPending}
	got, err := c.Fill(ctx, 3, func(ctx context.Context) (*models.Order, error) {
		// a status change commits and invalidates while the read is in flight
		require.NoError(t, c.Invalidate(ctx, 3))
		return stale, nil
	})
	require.NoError(t, err)
	assert.Same(t, stale, got)

	_, ok, err := c.Get(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok, "a read that raced an invalidation must not be cached")

	calls := 0
	_, err = c.Fill(ctx, 3, loaderOf(&models.Order{ID: 3, Status: models.OrderStatusCancelled}, &calls))
	require.NoError(t, err)
	cached, ok, err := c.Get(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.OrderStatusCancelled, cached.Status)
}

func TestOrderCacheFillPassesThroughLoadResult(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	boom := errors.New("db down")
	_, err := c.Fill(ctx, 4, func(context.Context) (*models.Order, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	calls := 0
	got, err := c.Fill(ctx, 4, loaderOf(nil, &calls))
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("order:4"))
}

func TestOrderCacheUnavailable(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	calls := 0
	got, err := c.Fill(context.Background(), 8, loaderOf(&models.Order{ID: 8}, &calls))
	assert.ErrorIs(t, err, ErrUnavailable)
	require.NotNil(t, got)
	assert.Equal(t, int64(8), got.ID)
	assert.Equal(t, 1, calls)
}

func TestOrderCacheExpires(t *testing.T) {
	c, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	calls := 0
	_, err := c.Fill(ctx, 5, loaderOf(&models.Order{ID: 5}, &calls))
	require.NoError(t, err)
	mr.FastForward(31 * time.Second)

	_, ok, err := c.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrderCacheCorruptEntryIsMiss(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set("order:9", "{not json"))

	_, ok, err := c.Get(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNilOrderCache(t *testing.T) {
	var c *OrderCache
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 1)
	assert.NoError(t, err)
	assert.False(t, ok)

	calls := 0
	got, err := c.Fill(ctx, 1, loaderOf(&models.Order{ID: 1}, &calls))
	assert.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, 1, calls)

	assert.NoError(t, c.Invalidate(ctx, 1))
	assert.NoError(t, c.Close())
}
