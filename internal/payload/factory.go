package payload

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"job-mailbox/internal/config"
)

// FromConfig selects the blob backend named by PAYLOAD_BACKEND.
func FromConfig(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.PayloadBackend {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis payload backend requires REDIS_ADDR")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedis(client, cfg.PayloadTTL), nil
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown payload backend %q", cfg.PayloadBackend)
	}
}
