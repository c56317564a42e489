// Package cache keeps rendered order details in Redis so repeated reads of
// the same order skip the three-query detail projection.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/safar/techshop-orders/internal/models"
)

// OrderCache is a cache-aside store for order details. A nil *OrderCache is
// valid and behaves as an always-empty cache.
type OrderCache struct {
	client *redis.Client
	ttl    time.Duration
}

func Connect(ctx context.Context, url string, ttl time.Duration) (*OrderCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewOrderCache(client, ttl), nil
}

func NewOrderCache(client *redis.Client, ttl time.Duration) *OrderCache {
	return &OrderCache{client: client, ttl: ttl}
}

// ErrUnavailable wraps Redis failures. Fill still returns the loaded order
// alongside it.
var ErrUnavailable = errors.New("order cache unavailable")

func orderKey(id int64) string {
	return fmt.Sprintf("order:%d", id)
}

// genKey is bumped by every Invalidate. Fill watches it so a load that raced
// an invalidation is never written back.
func genKey(id int64) string {
	return fmt.Sprintf("order:%d:gen", id)
}

// Get returns the cached order and whether it was found. Decode failures
// count as misses.
func (c *OrderCache) Get(ctx context.Context, id int64) (*models.Order, bool, error) {
	if c == nil {
		return nil, false, nil
	}

	data, err := c.client.Get(ctx, orderKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached order: %w", err)
	}

	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, false, nil
	}
	return &order, true, nil
}

// Fill runs load and caches a non-nil result, unless Invalidate ran for the
// same id between the start of load and the write. Errors from load are
// returned unchanged.
func (c *OrderCache) Fill(ctx context.Context, id int64, load func(context.Context) (*models.Order, error)) (*models.Order, error) {
	if c == nil {
		return load(ctx)
	}

	var (
		order   *models.Order
		loadErr error
		loaded  bool
	)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		order, loadErr = load(ctx)
		loaded = true
		if loadErr != nil || order == nil {
			return nil
		}

		payload, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("encode order: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, orderKey(id), payload, c.ttl)
			return nil
		})
		return err
	}, genKey(id))

	if !loaded {
		order, loadErr = load(ctx)
	}
	if loadErr != nil {
		return nil, loadErr
	}
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return order, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return order, nil
}

// Invalidate drops the cached order and bumps its generation so in-flight
// fills for it are discarded.
func (c *OrderCache) Invalidate(ctx context.Context, id int64) error {
	if c == nil {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, orderKey(id))
		pipe.Incr(ctx, genKey(id))
		if c.ttl > 0 {
			pipe.Expire(ctx, genKey(id), c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate cached order: %w", err)
	}
	return nil
}

func (c *OrderCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
