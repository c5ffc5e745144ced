package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// RedisStore shares entries between API instances through redis, with an
// optional TinyLFU layer in each process in front of it.
//
// The local layer is not invalidated across instances: Purge clears redis and
// the calling process only, so other instances may keep serving the old value
// for up to Options.LocalTTL. Keep LocalTTL short, or zero, for names whose
// purges must be seen everywhere at once.
type RedisStore struct {
	opts  Options
	cache *cache.Cache
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client, opts Options) *RedisStore {
	if opts.Capacity <= 0 {
		opts.Capacity = 1024
	}
	co := &cache.Options{Redis: rdb}
	if opts.LocalTTL > 0 {
		co.LocalCache = cache.NewTinyLFU(opts.Capacity, opts.LocalTTL)
	}
	return &RedisStore{opts: opts, cache: cache.New(co)}
}

func (s *RedisStore) Get(ctx context.Context, name, key string) (string, error) {
	var val string
	err := s.cache.Get(ctx, s.opts.keyFor(name, key), &val)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cache get %s: %w", name, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, name, key string, val string) error {
	err := s.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   s.opts.keyFor(name, key),
		Value: val,
		TTL:   s.opts.ttlFor(name),
	})
	if err != nil {
		return fmt.Errorf("cache set %s: %w", name, err)
	}
	return nil
}

func (s *RedisStore) Purge(ctx context.Context, name, key string) error {
	err := s.cache.Delete(ctx, s.opts.keyFor(name, key))
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return fmt.Errorf("cache purge %s: %w", name, err)
	}
	return nil
}
