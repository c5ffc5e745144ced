package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memEntry struct {
	val     string
	expires time.Time
}

// MemStore is a bounded LRU in process memory. The LRU evicts at the longest
// configured TTL; shorter-lived names are checked on read.
type MemStore struct {
	opts    Options
	entries *expirable.LRU[string, memEntry]
	now     func() time.Time
}

var _ Store = (*MemStore)(nil)

func NewMemStore(opts Options) *MemStore {
	if opts.Capacity <= 0 {
		opts.Capacity = 1024
	}
	return &MemStore{
		opts:    opts,
		entries: expirable.NewLRU[string, memEntry](opts.Capacity, nil, opts.maxTTL()),
		now:     time.Now,
	}
}

func (s *MemStore) Get(_ context.Context, name, key string) (string, error) {
	k := s.opts.keyFor(name, key)
	e, ok := s.entries.Get(k)
	if !ok {
		return "", nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		s.entries.Remove(k)
		return "", nil
	}
	return e.val, nil
}

func (s *MemStore) Set(_ context.Context, name, key string, val string) error {
	e := memEntry{val: val}
	if ttl := s.opts.ttlFor(name); ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.entries.Add(s.opts.keyFor(name, key), e)
	return nil
}

func (s *MemStore) Purge(_ context.Context, name, key string) error {
	s.entries.Remove(s.opts.keyFor(name, key))
	return nil
}

func (s *MemStore) Len() int {
	return s.entries.Len()
}
