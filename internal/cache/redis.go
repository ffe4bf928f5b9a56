package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/ecoguard/config"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned by Get when the key does not exist
var ErrCacheMiss = errors.New("cache miss")

// RedisClient is an interface for Redis operations
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Enabled() bool
	Close() error
}

// redisClient implements the RedisClient interface
type redisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client. When redis is disabled in the
// configuration a no-op client is returned that always misses.
func NewRedisClient(cfg config.RedisConfig) (RedisClient, error) {
	if !cfg.Enabled {
		return disabledClient{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisClient{client: client}, nil
}

// NewFromClient wraps an existing go-redis client
func NewFromClient(client *redis.Client) RedisClient {
	return &redisClient{client: client}
}

// Get retrieves a value from Redis
func (r *redisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

// Set stores a value in Redis with expiration
func (r *redisClient) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Delete removes keys from Redis
func (r *redisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisClient) Enabled() bool { return true }

// Close closes the Redis connection
func (r *redisClient) Close() error {
	return r.client.Close()
}

// Disabled returns a client that stores nothing and always misses
func Disabled() RedisClient {
	return disabledClient{}
}

// disabledClient stands in when no Redis is configured
type disabledClient struct{}

func (disabledClient) Get(context.Context, string) (string, error) { return "", ErrCacheMiss }

func (disabledClient) Set(context.Context, string, string, time.Duration) error { return nil }

func (disabledClient) Delete(context.Context, ...string) error { return nil }

func (disabledClient) Ping(context.Context) error { return nil }

func (disabledClient) Enabled() bool { return false }

func (disabledClient) Close() error { return nil }
