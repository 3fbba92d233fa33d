package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/grimstore/grimstore/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// Key layouts shared between the catalog cache and the order status cache.
const (
	CatalogProductsKeyFormat = "catalog:products:%s" // catalog:products:<category-slug>
	CatalogCategoryKeyFormat = "catalog:category:%s" // catalog:category:<slug>
	OrderStatusKeyFormat     = "order:status:%s"     // order:status:<transaction-id>

	CatalogTTL     = 60 * time.Second
	OrderStatusTTL = 24 * time.Hour
)

// SetupCache initializes the connection to the Redis cache server
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0, // use default DB
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to Redis cache: %v", err)
	} else {
		log.Infof("[Cache] Connected to Redis cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// GetInt retrieves an integer value from the cache by key
func GetInt(key string) (int, error) {
	val, err := GetClient().Get(ctx, key).Int()
	if err != nil {
		return 0, err
	}
	return val, nil
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

// ProductsKey returns the catalog cache key for a category slug.
func ProductsKey(slug string) string {
	return fmt.Sprintf(CatalogProductsKeyFormat, slug)
}

// CategoryKey returns the category config cache key for a slug.
func CategoryKey(slug string) string {
	return fmt.Sprintf(CatalogCategoryKeyFormat, slug)
}

// OrderStatusKey returns the cache key holding the last seen status of a
// transaction.
func OrderStatusKey(trxID string) string {
	return fmt.Sprintf(OrderStatusKeyFormat, trxID)
}
