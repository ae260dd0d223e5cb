package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voxaria/voxpremium/internal/pkg/env"
)

// ErrMiss is returned when a key is absent or past its TTL.
var ErrMiss = errors.New("cache: miss")

// Cache is a TTL cache for read-mostly upstream data (Discord guild lists,
// bot instances). It is constructed once and passed to whatever needs it;
// correctness-critical reads never go through here.
type Cache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// New wraps an existing Redis client.
func New(client *redis.Client, defaultTTL time.Duration) *Cache {
	return &Cache{client: client, defaultTTL: defaultTTL}
}

// NewFromEnv connects to the cache server configured via CACHE_HOST/CACHE_PORT.
func NewFromEnv(defaultTTL time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379")),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping failed: %w", err)
	}
	return New(client, defaultTTL), nil
}

// Client exposes the underlying Redis client for packages that share the
// connection (OAuth state storage).
func (c *Cache) Client() *redis.Client {
	return c.client
}

// SetJSON stores a JSON-encoded value. ttl <= 0 uses the cache default.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

// GetJSON loads a value stored by SetJSON into dest. Returns ErrMiss when the
// key is absent.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) error {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Delete drops a key. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
