package dwell

import (
	"time"

	"guarita-loadqueue/internal/models"

	"go.uber.org/zap"
)

// Monitor resolves open trips per vehicle and reports data anomalies
type Monitor struct {
	logger *zap.Logger
}

// NewMonitor creates a dwell monitor
func NewMonitor(logger *zap.Logger) *Monitor {
	return &Monitor{logger: logger}
}

// OpenTrip open trip of plate; several open trips are logged and resolved by SelectOpenTrip
func (m *Monitor) OpenTrip(plate string, trips []models.VehicleTrip) (models.VehicleTrip, bool) {
	trip, count, ok := SelectOpenTrip(plate, trips)
	if count > 1 {
		m.logger.Warn("Multiple open trips for plate",
			zap.String("plate", models.NormalizePlate(plate)),
			zap.Int("open_trips", count),
			zap.String("selected_date", trip.Date),
			zap.String("selected_entry_time", trip.EntryTime),
		)
	}
	return trip, ok
}

// Alerts one countdown per vehicle currently inside the unit, longest dwell first.
// Halted trips are left out.
func (m *Monitor) Alerts(trips []models.VehicleTrip, now time.Time) []Countdown {
	var out []Countdown
	for _, plate := range OpenPlates(trips) {
		trip, ok := m.OpenTrip(plate, trips)
		if !ok {
			continue
		}
		c, ok := NewCountdown(trip, now)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	SortCountdowns(out)
	return out
}
