package publisher

import (
	"context"
	"sort"
	"sync"
	"time"

	"guarita-loadqueue/internal/dwell"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher compares dwell alerts tick to tick and publishes only the changes
type Dispatcher struct {
	publishers []AlertPublisher
	logger     *zap.Logger

	mu   sync.Mutex
	last map[string]dwell.Countdown
}

// NewDispatcher creates a dispatcher fanning out to publishers
func NewDispatcher(logger *zap.Logger, publishers ...AlertPublisher) *Dispatcher {
	return &Dispatcher{
		publishers: publishers,
		logger:     logger,
		last:       make(map[string]dwell.Countdown),
	}
}

// Restore seeds the previous tick's alerts, e.g. from the view cache after a
// restart, so tiers already announced are not published again
func (d *Dispatcher) Restore(alerts []dwell.Countdown) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.last = make(map[string]dwell.Countdown, len(alerts))
	for _, a := range alerts {
		d.last[a.Plate] = a
	}
}

// Enabled reports whether any publisher is configured
func (d *Dispatcher) Enabled() bool {
	return len(d.publishers) > 0
}

// Dispatch publishes tier changes between the previous call and alerts.
// A vehicle first seen at Normal is not an event; a vehicle that disappears
// after Slow or Delayed produces a cleared event. Publish failures are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, tick uint64, alerts []dwell.Countdown, at time.Time) []AlertEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	var events []AlertEvent
	current := make(map[string]dwell.Countdown, len(alerts))
	for _, a := range alerts {
		current[a.Plate] = a

		prevTier := dwell.TierNormal
		if prev, ok := d.last[a.Plate]; ok {
			prevTier = prev.Tier
		}
		if a.Tier == prevTier {
			continue
		}
		events = append(events, AlertEvent{
			Kind:         KindTierChanged,
			Plate:        a.Plate,
			Driver:       a.Driver,
			EntryTime:    a.EntryTime,
			Tier:         a.Tier,
			PreviousTier: prevTier,
			Elapsed:      a.Elapsed,
		})
	}
	var cleared []AlertEvent
	for plate, prev := range d.last {
		if _, ok := current[plate]; ok || prev.Tier == dwell.TierNormal {
			continue
		}
		cleared = append(cleared, AlertEvent{
			Kind:         KindCleared,
			Plate:        plate,
			Driver:       prev.Driver,
			EntryTime:    prev.EntryTime,
			Tier:         dwell.TierNormal,
			PreviousTier: prev.Tier,
			Elapsed:      prev.Elapsed,
		})
	}
	sort.Slice(cleared, func(a, b int) bool { return cleared[a].Plate < cleared[b].Plate })
	events = append(events, cleared...)
	d.last = current

	for i := range events {
		events[i].ID = uuid.NewString()
		events[i].Tick = tick
		events[i].At = at
		for _, p := range d.publishers {
			if err := p.PublishAlert(ctx, events[i]); err != nil {
				d.logger.Error("Failed to publish dwell alert",
					zap.String("plate", events[i].Plate),
					zap.String("kind", events[i].Kind),
					zap.Error(err),
				)
			}
		}
	}

	if len(events) > 0 {
		d.logger.Info("Dispatched dwell alerts",
			zap.Uint64("tick", tick),
			zap.Int("events", len(events)),
		)
	}
	return events
}
