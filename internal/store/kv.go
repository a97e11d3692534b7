// Package store wraps the Redis cache used for hot read paths, mainly the
// pending-requests dashboard. The cache is strictly best-effort: a miss or a
// Redis outage falls through to the database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrMiss = errors.New("cache miss")

// Cache keys shared between the services that fill and invalidate them.
const (
	KeyRequestedRecords = "records:requested"
	KeyLastBarcode      = "records:last_barcode"
)

type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type RedisKV struct {
	c *redis.Client
}

func NewRedisKV(c *redis.Client) *RedisKV { return &RedisKV{c: c} }

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.c.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.c.Del(ctx, keys...).Err()
}

// NopKV satisfies KV when Redis is not configured. Every Get is a miss.
type NopKV struct{}

func (NopKV) Get(context.Context, string) (string, error) { return "", ErrMiss }

func (NopKV) Set(context.Context, string, string, time.Duration) error { return nil }

func (NopKV) Delete(context.Context, ...string) error { return nil }
