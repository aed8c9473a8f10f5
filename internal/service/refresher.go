package service

import (
	"context"
	"fmt"
	"time"

	"guarita-loadqueue/internal/repository"
	"guarita-loadqueue/internal/snapshot"

	"go.uber.org/zap"
)

// RefreshHook runs after every refresh attempt, successful or not
type RefreshHook func(ctx context.Context)

// Refresher the only time-driven component: pulls a full snapshot every interval
// and swaps it into the store. A failed pull keeps the previous snapshot, marks it
// stale and is retried on the next tick.
type Refresher struct {
	source   repository.SnapshotSource
	store    *snapshot.Store
	interval time.Duration
	clock    func() time.Time
	logger   *zap.Logger

	trigger chan struct{}
	hooks   []RefreshHook
}

// NewRefresher creates a refresher; interval <= 0 means 60 seconds
func NewRefresher(source repository.SnapshotSource, store *snapshot.Store, interval time.Duration, logger *zap.Logger) *Refresher {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Refresher{
		source:   source,
		store:    store,
		interval: interval,
		clock:    time.Now,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// OnRefresh registers a hook; not safe to call once Run started
func (r *Refresher) OnRefresh(h RefreshHook) {
	r.hooks = append(r.hooks, h)
}

// TriggerNow requests an extra refresh; requests made while one is pending coalesce
func (r *Refresher) TriggerNow() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// RefreshOnce pulls and publishes one snapshot, then runs the hooks
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	err := r.pull(ctx)
	for _, h := range r.hooks {
		h(ctx)
	}
	return err
}

func (r *Refresher) pull(ctx context.Context) error {
	start := r.clock()
	data, err := r.source.FetchSnapshot(ctx)
	if err != nil {
		r.store.MarkStale(err, start)
		st := r.store.Status()
		r.logger.Error("Snapshot refresh failed, serving previous snapshot",
			zap.Uint64("tick", st.Tick),
			zap.Int("consecutive_failures", st.ConsecutiveFailures),
			zap.Error(err),
		)
		return fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	snap := r.store.Swap(data, start)
	r.logger.Info("Snapshot refreshed",
		zap.Uint64("tick", snap.Tick),
		zap.String("snapshot_id", snap.ID),
		zap.Int("jobs", len(snap.Jobs)),
		zap.Int("trips", len(snap.Trips)),
		zap.Duration("took", r.clock().Sub(start)),
	)
	return nil
}

// Run refreshes at startup and then on every tick or trigger until ctx is done
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Starting snapshot refresher",
		zap.Duration("interval", r.interval),
	)

	// errors are logged in pull; the loop keeps its fixed cadence
	_ = r.RefreshOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Snapshot refresher stopped")
			return nil
		case <-ticker.C:
			_ = r.RefreshOnce(ctx)
		case <-r.trigger:
			_ = r.RefreshOnce(ctx)
		}
	}
}
