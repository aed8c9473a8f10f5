package store

import (
	"context"
	"fmt"
	"time"

	"guarita-loadqueue/internal/engine"

	"go.uber.org/zap"
)

// ViewCache publishes the latest view model for consumers that read Redis directly
type ViewCache struct {
	kv     KVStore
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewViewCache creates a view cache writing to key with ttl
func NewViewCache(kv KVStore, key string, ttl time.Duration, logger *zap.Logger) *ViewCache {
	return &ViewCache{
		kv:     kv,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

// Put writes vm as JSON
func (c *ViewCache) Put(ctx context.Context, vm *engine.ViewModel) error {
	n, err := setJSON(ctx, c.kv, c.key, vm, c.ttl)
	if err != nil {
		return fmt.Errorf("failed to update view cache: %w", err)
	}

	c.logger.Debug("Updated view cache",
		zap.String("key", c.key),
		zap.Uint64("tick", vm.Tick),
		zap.Int("bytes", n),
	)
	return nil
}

// Get reads the cached view model; ErrCacheMiss when absent or expired
func (c *ViewCache) Get(ctx context.Context) (*engine.ViewModel, error) {
	var vm engine.ViewModel
	if err := getJSON(ctx, c.kv, c.key, &vm); err != nil {
		return nil, err
	}
	return &vm, nil
}
