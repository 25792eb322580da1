// Package cache provides the Redis-backed storage used for browser sessions.
package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStorage keeps session payloads in Redis under a shared key prefix.
// It implements fiber.Storage, whose contract treats a missing key as
// (nil, nil) rather than an error.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(addr string) *RedisStorage {
	return &RedisStorage{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
		prefix: "fastkeeper:session:",
	}
}

// Ping verifies connectivity, for startup checks.
func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStorage) Get(key string) ([]byte, error) {
	data, err := s.client.Get(context.Background(), s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Set stores val under key. A zero exp means no expiry.
func (s *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	return s.client.Set(context.Background(), s.prefix+key, val, exp).Err()
}

func (s *RedisStorage) Delete(key string) error {
	return s.client.Del(context.Background(), s.prefix+key).Err()
}

// Reset drops every key under the prefix, leaving other tenants of the
// database alone.
func (s *RedisStorage) Reset() error {
	ctx := context.Background()

	keys, err := s.client.Keys(ctx, s.prefix+"*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
