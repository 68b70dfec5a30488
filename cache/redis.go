package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ZaguanLabs/langsync"
	"github.com/redis/go-redis/v9"
)

// RedisStorage is a Redis-backed Storage, for hosts that share one
// persisted cache between processes.
type RedisStorage struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	maxBytes  int
}

// RedisConfig holds configuration for the Redis storage.
type RedisConfig struct {
	URL       string // Redis connection URL (e.g., "redis://localhost:6379")
	TTL       int    // TTL in seconds (0 = no expiration)
	KeyPrefix string // Prefix for all keys (default: "langsync:")
	MaxBytes  int    // Largest value accepted (0 = unlimited)
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(cfg RedisConfig) (*RedisStorage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	s := NewRedisStorageFromClient(client, cfg.TTL, cfg.KeyPrefix)
	s.maxBytes = cfg.MaxBytes
	return s, nil
}

// NewRedisStorageFromClient creates a RedisStorage from an existing client.
func NewRedisStorageFromClient(client *redis.Client, ttlSeconds int, keyPrefix string) *RedisStorage {
	if keyPrefix == "" {
		keyPrefix = "langsync:"
	}

	ttl := time.Duration(ttlSeconds) * time.Second
	if ttlSeconds <= 0 {
		ttl = 0
	}

	return &RedisStorage{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

// Get retrieves a value from Redis.
func (s *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores a value in Redis. Values over MaxBytes and Redis OOM replies
// are reported as *langsync.StorageQuotaError.
func (s *RedisStorage) Set(ctx context.Context, key, value string) error {
	if s.maxBytes > 0 && len(value) > s.maxBytes {
		return &langsync.StorageQuotaError{Key: key, Size: len(value), Limit: s.maxBytes}
	}

	err := s.client.Set(ctx, s.keyPrefix+key, value, s.ttl).Err()
	if err != nil && strings.HasPrefix(err.Error(), "OOM") {
		return &langsync.StorageQuotaError{Key: key, Size: len(value), Cause: err}
	}
	return err
}

// Remove deletes a key from Redis.
func (s *RedisStorage) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.keyPrefix+key).Err()
}

// Close closes the Redis connection.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

// Ping tests the Redis connection.
func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Verify RedisStorage implements Storage
var _ langsync.Storage = (*RedisStorage)(nil)
