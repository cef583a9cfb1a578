package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/briefwire/curator/internal/config"
)

// Cache is the coordination surface the pipeline needs: an atomic per-date
// run claim plus markers for already-classified items.
type Cache interface {
	AcquireRunClaim(ctx context.Context, date string, ttl time.Duration) (bool, error)
	ReleaseRunClaim(ctx context.Context, date string) error
	IsClassified(ctx context.Context, hash string) (bool, error)
	MarkClassified(ctx context.Context, hash string, ttl time.Duration) error
	Close() error
}

type RedisClient struct {
	client *redis.Client
	prefix string
}

var _ Cache = (*RedisClient)(nil)

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client: client,
		prefix: cfg.RedisPrefix,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// AcquireRunClaim atomically marks a selection run as in progress for the
// given date. SetNX makes the claim exclusive: a second trigger for the
// same date gets false and must not start.
func (r *RedisClient) AcquireRunClaim(ctx context.Context, date string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+"run:"+date, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx error: %w", err)
	}
	return ok, nil
}

func (r *RedisClient) ReleaseRunClaim(ctx context.Context, date string) error {
	return r.client.Del(ctx, r.prefix+"run:"+date).Err()
}

func (r *RedisClient) IsClassified(ctx context.Context, hash string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.prefix+"classified:"+hash).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return exists > 0, nil
}

func (r *RedisClient) MarkClassified(ctx context.Context, hash string, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+"classified:"+hash, "1", ttl).Err()
}
