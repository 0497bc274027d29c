package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// LocalCache is an in-process cache with the same JSON value semantics as
// RedisCache. Used for geocode memoisation and by single-node deployments.
type LocalCache struct {
	store *gocache.Cache
}

func NewLocalCache(defaultExpiration, cleanupInterval time.Duration) *LocalCache {
	return &LocalCache{store: gocache.New(defaultExpiration, cleanupInterval)}
}

func (l *LocalCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	l.store.Set(key, data, expiration)
	return nil
}

func (l *LocalCache) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := l.store.Get(key)
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(v.([]byte), dest)
}

func (l *LocalCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		l.store.Delete(k)
	}
	return nil
}
