// Package store keeps side data outside the engine in a key-value store:
// the published view model and the autocomplete preference lists.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss the key does not exist or expired
var ErrCacheMiss = errors.New("cache miss")

// ErrCorruptValue the stored value does not decode
var ErrCorruptValue = errors.New("corrupt stored value")

// ErrUpdateConflict the key kept changing under a read-modify-write
var ErrUpdateConflict = errors.New("concurrent update conflict")

// maxUpdateAttempts optimistic retries of KVStore.Update
const maxUpdateAttempts = 5

// UpdateFunc computes the next value of a key from its current one; found is
// false when the key is absent
type UpdateFunc func(current string, found bool) (string, error)

// KVStore key-value side store. Update is an atomic read-modify-write so that
// several service instances can share preference lists.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) (string, error)
}

// RedisKVStore go-redis backed KVStore
type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Update runs fn under WATCH and commits with MULTI/EXEC, retrying when the
// key changed in between
func (r *RedisKVStore) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) (string, error) {
	var next string
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		found := true
		if errors.Is(err, redis.Nil) {
			current, found = "", false
		} else if err != nil {
			return err
		}

		next, err = fn(current, found)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return "", fmt.Errorf("redis update %s: %w", key, err)
		}
	}
	return "", fmt.Errorf("redis update %s: %w", key, ErrUpdateConflict)
}

// getJSON decodes the value of key into out
func getJSON(ctx context.Context, kv KVStore, key string, out any) error {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode %s: %w: %w", key, ErrCorruptValue, err)
	}
	return nil
}

// setJSON encodes v and stores it under key
func setJSON(ctx context.Context, kv KVStore, key string, v any, ttl time.Duration) (int, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, string(raw), ttl); err != nil {
		return 0, err
	}
	return len(raw), nil
}
