package store

import "context"

// backend is the raw key-value/collection primitive set the façade builds
// its domain helpers on top of, satisfied by either redisBackend or
// memoryBackend so every higher-level method in store.go is storage-agnostic.
type backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error

	ListPush(ctx context.Context, key, value string) error
	ListTrim(ctx context.Context, key string, keepLast int) error
	ListRange(ctx context.Context, key string) ([]string, error)

	SAdd(ctx context.Context, key, member string) error
	SRem(ctx context.Context, key, member string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key, field string) error
}
