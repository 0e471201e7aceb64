package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a claim store shared by every instance pointed at the same
// server. Claims are SET NX with an expiry, so they vanish on their own.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis connects lazily; the first command dials.
func NewRedis(addr, password string) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})}
}

func (r *Redis) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim: %w", err)
	}
	return ok, nil
}

func (r *Redis) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}

func (r *Redis) Stats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{"backend": "redis"}
	if err := r.client.Ping(ctx).Err(); err != nil {
		stats["reachable"] = false
		stats["error"] = err.Error()
		return stats
	}
	stats["reachable"] = true
	if n, err := r.client.DBSize(ctx).Result(); err == nil {
		stats["total_keys"] = n
	}
	return stats
}

func (r *Redis) Close() error {
	return r.client.Close()
}
