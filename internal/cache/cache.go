// Package cache keeps derived moderation data (reporter accuracy) off the
// database for a while. Entries are grouped by name, each name with its own
// TTL, and values are JSON strings. Implementations exist for process memory
// and redis.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

type Store interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}

type Options struct {
	// Prefix namespaces every key so deployments can share one redis.
	Prefix string
	// TTL applies to names missing from TTLs.
	TTL  time.Duration
	TTLs map[string]time.Duration
	// Capacity bounds the entries held in process memory.
	Capacity int
	// LocalTTL caps how long a redis-backed store serves a value from its
	// in-process layer. Zero disables that layer.
	LocalTTL time.Duration
}

func (o Options) ttlFor(name string) time.Duration {
	if ttl, ok := o.TTLs[name]; ok && ttl > 0 {
		return ttl
	}
	return o.TTL
}

// maxTTL is the longest lifetime any name can ask for.
func (o Options) maxTTL() time.Duration {
	max := o.TTL
	for _, ttl := range o.TTLs {
		if ttl > max {
			max = ttl
		}
	}
	return max
}

func (o Options) keyFor(name, key string) string {
	if o.Prefix == "" {
		return name + ":" + key
	}
	return o.Prefix + ":" + name + ":" + key
}

// GetJSON decodes the cached value into v. found is false on a miss.
func GetJSON(ctx context.Context, s Store, name, key string, v any) (found bool, err error) {
	raw, err := s.Get(ctx, name, key)
	if err != nil || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, err
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, name, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, name, key, string(b))
}
