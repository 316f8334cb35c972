package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// IdempotencyStore keeps replayable responses for Idempotency-Key requests.
type IdempotencyStore struct {
	client goredis.Cmdable
}

func NewIdempotencyStore(client goredis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Get returns "" when the key is unknown.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get idempotency key: %w", err)
	}
	return v, nil
}

func (s *IdempotencyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	// First writer wins; a concurrent duplicate keeps the earlier response.
	if err := s.client.SetNX(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore struct {
	client goredis.Cmdable
	prefix string
}

func NewRateLimitStore(client goredis.Cmdable) *RateLimitStore {
	return &RateLimitStore{client: client, prefix: "ratelimit:"}
}

// Hit records one request and returns the count within the current window.
func (s *RateLimitStore) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	bucket := time.Now().UnixNano() / int64(window)
	k := fmt.Sprintf("%s%s:%d", s.prefix, key, bucket)

	var incr *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rate limit hit: %w", err)
	}
	return incr.Val(), nil
}
