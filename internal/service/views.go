package service

import (
	"context"
	"errors"

	"guarita-loadqueue/internal/engine"
	"guarita-loadqueue/internal/publisher"
	"guarita-loadqueue/internal/snapshot"
	"guarita-loadqueue/internal/store"

	"go.uber.org/zap"
)

// ViewSink receives the view model built after each refresh
type ViewSink interface {
	Put(ctx context.Context, vm *engine.ViewModel) error
}

// ViewSource reads back the last published view model
type ViewSource interface {
	Get(ctx context.Context) (*engine.ViewModel, error)
}

// ViewPublisher builds the view model once per refresh and hands it to the
// view cache and the dwell alert dispatcher
type ViewPublisher struct {
	engine     *engine.Engine
	sink       ViewSink
	dispatcher *publisher.Dispatcher
	logger     *zap.Logger
}

// NewViewPublisher creates a view publisher; sink and dispatcher may be nil
func NewViewPublisher(e *engine.Engine, sink ViewSink, dispatcher *publisher.Dispatcher, logger *zap.Logger) *ViewPublisher {
	return &ViewPublisher{
		engine:     e,
		sink:       sink,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Publish is a RefreshHook
func (p *ViewPublisher) Publish(ctx context.Context) {
	if p.sink == nil && (p.dispatcher == nil || !p.dispatcher.Enabled()) {
		return
	}

	vm, err := p.engine.BuildViewModel()
	if err != nil {
		if !errors.Is(err, snapshot.ErrSnapshotUnavailable) {
			p.logger.Error("Failed to build view model", zap.Error(err))
		}
		return
	}

	if p.sink != nil {
		if err := p.sink.Put(ctx, vm); err != nil {
			p.logger.Error("Failed to update view cache", zap.Error(err))
		}
	}
	if p.dispatcher != nil && p.dispatcher.Enabled() {
		p.dispatcher.Dispatch(ctx, vm.Tick, vm.DwellAlerts, vm.GeneratedAt)
	}
}

// Restore seeds the alert dispatcher from the last published view so a restart
// does not re-announce tiers that were already published
func (p *ViewPublisher) Restore(ctx context.Context, src ViewSource) {
	if src == nil || p.dispatcher == nil || !p.dispatcher.Enabled() {
		return
	}

	vm, err := src.Get(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrCacheMiss) {
			p.logger.Warn("Failed to read cached view, alert state starts empty", zap.Error(err))
		}
		return
	}

	p.dispatcher.Restore(vm.DwellAlerts)
	p.logger.Info("Restored dwell alert state from view cache",
		zap.Uint64("tick", vm.Tick),
		zap.Int("alerts", len(vm.DwellAlerts)),
	)
}
