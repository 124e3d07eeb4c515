package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nexi-assistant/internal/common/config"
	"nexi-assistant/internal/common/intentstore"
)

// RedisClient is the connection behind the Redis intent store.
type RedisClient struct {
	client *redis.Client
	addr   string
}

// NewRedis opens a lazily connecting client; call Ping to verify it.
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &RedisClient{client: rdb, addr: cfg.Address}, nil
}

// IntentStore returns the pinned-intent store on this connection. The store
// keeps its own key prefix and TTL from cfg.
func (c *RedisClient) IntentStore(cfg config.IntentStoreConfig) (intentstore.Store, error) {
	cfg.Backend = config.StoreRedis
	return intentstore.New(cfg, c.client)
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.addr, err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
