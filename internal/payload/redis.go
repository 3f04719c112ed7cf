package payload

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "payload:"

// Redis stores blobs in Redis, sharing the instance the rate limiter runs
// on. A TTL of zero keeps blobs until an external policy removes them.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Put(ctx context.Context, data []byte) (string, error) {
	ref := uuid.NewString()
	if err := r.client.Set(ctx, redisKeyPrefix+ref, data, r.ttl).Err(); err != nil {
		return "", err
	}
	return ref, nil
}

func (r *Redis) Get(ctx context.Context, ref string) ([]byte, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+ref).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}
