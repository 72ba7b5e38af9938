package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pharmacy_backend/internal/models"

	"github.com/go-redis/redis/v8"
)

var ErrCacheMiss = errors.New("cache miss")

// Client is a JSON read cache for orders and catalog products. Every entry
// expires after ttl. Order writers overwrite with the committed row; product
// writers delete keys when the underlying row changes.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

func Initialize(redisURL string, ttl time.Duration) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

func orderKey(id uint) string   { return fmt.Sprintf("order:%d", id) }
func productKey(id uint) string { return fmt.Sprintf("product:%d", id) }

func (c *Client) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := c.get(ctx, orderKey(id), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SetOrder stores order unless the cached copy was updated more recently.
// A concurrent write to the same key wins and SetOrder becomes a no-op.
func (c *Client) SetOrder(ctx context.Context, order *models.Order) error {
	key := orderKey(order.ID)
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			var cached models.Order
			if json.Unmarshal(val, &cached) == nil && cached.UpdatedAt.After(order.UpdatedAt) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, key)
	if err == redis.TxFailedErr {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (c *Client) DeleteOrder(ctx context.Context, id uint) error {
	return c.rdb.Del(ctx, orderKey(id)).Err()
}

func (c *Client) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := c.get(ctx, productKey(id), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) SetProduct(ctx context.Context, product *models.Product) error {
	return c.set(ctx, productKey(product.ID), product)
}

func (c *Client) DeleteProducts(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Client) get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func (c *Client) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
