package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

type RedisOptions struct {
	URL        string
	Prefix     string
	DefaultTTL time.Duration
}

func validateRedisOptions(opts *RedisOptions) error {
	if opts == nil {
		return errors.New("options are required")
	}
	if opts.URL == "" {
		return errors.New("URL is required")
	}
	if opts.Prefix == "" {
		return errors.New("prefix is required")
	}
	return validatePrefix(opts.Prefix)
}

// NewRedisStore connects to redis and pings it before returning.
func NewRedisStore(ctx context.Context, opts *RedisOptions) (*RedisStore, error) {
	if err := validateRedisOptions(opts); err != nil {
		return nil, fmt.Errorf("validate redis options: %w", err)
	}
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client, prefix: opts.Prefix, defaultTTL: opts.DefaultTTL}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, buildKey(r.prefix, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if value == nil {
		return ErrNilValue
	}
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	if err := r.client.Set(ctx, buildKey(r.prefix, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = buildKey(r.prefix, k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
