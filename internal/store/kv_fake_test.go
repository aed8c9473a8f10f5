package store_test

import (
	"context"
	"sync"
	"time"

	"guarita-loadqueue/internal/store"
)

// fakeKVStore in-memory KV with TTL
type fakeKVStore struct {
	mu   sync.Mutex
	data map[string]fakeKVItem
	ttls map[string]time.Duration
}

type fakeKVItem struct {
	value   string
	expires time.Time // zero = no ttl
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{
		data: make(map[string]fakeKVItem),
		ttls: make(map[string]time.Duration),
	}
}

func (f *fakeKVStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.data[key]
	if !ok {
		return "", store.ErrCacheMiss
	}
	if !item.expires.IsZero() && time.Now().After(item.expires) {
		delete(f.data, key)
		return "", store.ErrCacheMiss
	}
	return item.value, nil
}

func (f *fakeKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	f.data[key] = fakeKVItem{value: value, expires: exp}
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKVStore) Update(ctx context.Context, key string, ttl time.Duration, fn store.UpdateFunc) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, found := f.data[key]
	if found && !item.expires.IsZero() && time.Now().After(item.expires) {
		found = false
	}
	next, err := fn(item.value, found)
	if err != nil {
		return "", err
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	f.data[key] = fakeKVItem{value: next, expires: exp}
	f.ttls[key] = ttl
	return next, nil
}
