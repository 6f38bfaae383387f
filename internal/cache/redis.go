package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

// RedisCache stores raw Understat pages and the latest fixture snapshot.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Client returns the underlying Redis client, shared with the stream publisher.
func (rc *RedisCache) Client() *redis.Client {
	return rc.client
}

// HealthCheck pings Redis to verify connection
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Set stores a key-value pair with TTL. A zero ttl keeps the key forever.
func (rc *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return rc.client.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a value by key, returning ErrMiss for absent keys.
func (rc *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := rc.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

// Delete removes keys
func (rc *RedisCache) Delete(ctx context.Context, keys ...string) error {
	return rc.client.Del(ctx, keys...).Err()
}

// SnapshotKey is where the latest refreshed fixture payload for a league lives.
func SnapshotKey(league, season string) string {
	return fmt.Sprintf("fixtures:latest:%s:%s", league, season)
}

// SaveSnapshot stores an encoded fixture payload under SnapshotKey.
func (rc *RedisCache) SaveSnapshot(ctx context.Context, league, season string, payload []byte, ttl time.Duration) error {
	return rc.Set(ctx, SnapshotKey(league, season), payload, ttl)
}

// LoadSnapshot returns the last payload stored by SaveSnapshot.
func (rc *RedisCache) LoadSnapshot(ctx context.Context, league, season string) ([]byte, error) {
	v, err := rc.Get(ctx, SnapshotKey(league, season))
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}
