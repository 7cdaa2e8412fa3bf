package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// redisBackend is the production backend, a thin wrapper over *redis.Client
// constructed from a DSN, the same idiom as the retrieval pack's
// redisclient.New (redis.ParseURL + redis.NewClient).
type redisBackend struct {
	cli *redis.Client
}

func newRedisBackend(url string) (*redisBackend, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &redisBackend{cli: redis.NewClient(opt)}, nil
}

func (b *redisBackend) ping(ctx context.Context) error {
	return b.cli.Ping(ctx).Err()
}

func (b *redisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := b.cli.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (b *redisBackend) Set(ctx context.Context, key, value string) error {
	return b.cli.Set(ctx, key, value, 0).Err()
}

func (b *redisBackend) Del(ctx context.Context, key string) error {
	return b.cli.Del(ctx, key).Err()
}

func (b *redisBackend) ListPush(ctx context.Context, key, value string) error {
	return b.cli.LPush(ctx, key, value).Err()
}

func (b *redisBackend) ListTrim(ctx context.Context, key string, keepLast int) error {
	return b.cli.LTrim(ctx, key, 0, int64(keepLast-1)).Err()
}

func (b *redisBackend) ListRange(ctx context.Context, key string) ([]string, error) {
	return b.cli.LRange(ctx, key, 0, -1).Result()
}

func (b *redisBackend) SAdd(ctx context.Context, key, member string) error {
	return b.cli.SAdd(ctx, key, member).Err()
}

func (b *redisBackend) SRem(ctx context.Context, key, member string) error {
	return b.cli.SRem(ctx, key, member).Err()
}

func (b *redisBackend) SMembers(ctx context.Context, key string) ([]string, error) {
	return b.cli.SMembers(ctx, key).Result()
}

func (b *redisBackend) HSet(ctx context.Context, key, field, value string) error {
	return b.cli.HSet(ctx, key, field, value).Err()
}

func (b *redisBackend) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := b.cli.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (b *redisBackend) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return b.cli.HGetAll(ctx, key).Result()
}

func (b *redisBackend) HDel(ctx context.Context, key, field string) error {
	return b.cli.HDel(ctx, key, field).Err()
}
