package cache

import (
	"context"
	"time"

	gcache "github.com/patrickmn/go-cache"
)

type MemoryStore struct {
	cache  *gcache.Cache
	prefix string
}

// NewMemoryStore returns an in-process store whose entries expire after
// defaultTTL unless Set is given its own ttl.
func NewMemoryStore(prefix string, defaultTTL time.Duration) (*MemoryStore, error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}
	if defaultTTL <= 0 {
		defaultTTL = gcache.NoExpiration
	}
	return &MemoryStore{
		cache:  gcache.New(defaultTTL, time.Minute),
		prefix: prefix,
	}, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.cache.Get(buildKey(m.prefix, key))
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if value == nil {
		return ErrNilValue
	}
	if ttl <= 0 {
		ttl = gcache.DefaultExpiration
	}
	m.cache.Set(buildKey(m.prefix, key), value, ttl)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.cache.Delete(buildKey(m.prefix, k))
	}
	return nil
}

// Len is the number of live entries, expired ones included until cleanup.
func (m *MemoryStore) Len() int {
	return m.cache.ItemCount()
}

func (m *MemoryStore) Flush() {
	m.cache.Flush()
}
