package dwell

import (
	"testing"
	"time"

	"guarita-loadqueue/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var brt = time.FixedZone("BRT", -3*3600)

func clock(hour, min int) time.Time {
	return time.Date(2026, 10, 16, hour, min, 0, 0, brt)
}

func openTrip(plate, entry string) models.VehicleTrip {
	return models.VehicleTrip{Plate: plate, Driver: "Joao", Date: "2026-10-16", EntryTime: entry}
}

func TestClassify_Thresholds(t *testing.T) {
	assert.Equal(t, TierNormal, Classify(0))
	assert.Equal(t, TierNormal, Classify(19))
	assert.Equal(t, TierSlow, Classify(20))
	assert.Equal(t, TierSlow, Classify(29))
	assert.Equal(t, TierDelayed, Classify(30))
	assert.Equal(t, TierDelayed, Classify(240))
}

func TestNextTierIn(t *testing.T) {
	assert.Equal(t, 20, NextTierIn(0))
	assert.Equal(t, 1, NextTierIn(19))
	assert.Equal(t, 10, NextTierIn(20))
	assert.Equal(t, 1, NextTierIn(29))
	assert.Equal(t, 0, NextTierIn(30))
}

func TestElapsedMinutes(t *testing.T) {
	trip := openTrip("ABC1234", "10:00")

	for _, c := range []struct {
		now  time.Time
		want int
		tier Tier
	}{
		{clock(10, 19), 19, TierNormal},
		{clock(10, 20), 20, TierSlow},
		{clock(10, 29), 29, TierSlow},
		{clock(10, 30), 30, TierDelayed},
	} {
		got, ok := ElapsedMinutes(trip, c.now)
		require.True(t, ok)
		assert.Equal(t, c.want, got)
		assert.Equal(t, c.tier, Classify(got))
	}

	got, ok := ElapsedMinutes(trip, clock(9, 50))
	require.True(t, ok)
	assert.Equal(t, 0, got, "entry after now clamps")
}

func TestElapsedMinutes_NoDwell(t *testing.T) {
	halted := openTrip("ABC1234", "10:00")
	halted.HaltFlag = true
	for _, now := range []time.Time{clock(10, 5), clock(12, 0), clock(23, 59)} {
		_, ok := ElapsedMinutes(halted, now)
		assert.False(t, ok)
	}

	closed := openTrip("ABC1234", "10:00")
	closed.ExitTime = "10:40"
	_, ok := ElapsedMinutes(closed, clock(11, 0))
	assert.False(t, ok)

	_, ok = ElapsedMinutes(openTrip("ABC1234", "10h00"), clock(11, 0))
	assert.False(t, ok)
}

func TestSelectOpenTrip_PicksLatestEntry(t *testing.T) {
	trips := []models.VehicleTrip{
		openTrip("abc-1234", "08:00"),
		{Plate: "ABC1234", EntryTime: "07:00", ExitTime: "07:30"},
		openTrip("ABC1234", "09:15"),
		openTrip("XYZ9876", "09:30"),
		openTrip("ABC 1234", "08:45"),
	}

	trip, count, ok := SelectOpenTrip("ABC1234", trips)
	require.True(t, ok)
	assert.Equal(t, 3, count)
	assert.Equal(t, "09:15", trip.EntryTime)

	_, count, ok = SelectOpenTrip("NOPE000", trips)
	assert.False(t, ok)
	assert.Zero(t, count)
}

func TestSelectOpenTrip_TieGoesToLater(t *testing.T) {
	a := openTrip("ABC1234", "09:00")
	a.Farm = "first"
	b := openTrip("ABC1234", "09:00")
	b.Farm = "second"

	trip, _, ok := SelectOpenTrip("ABC1234", []models.VehicleTrip{a, b})
	require.True(t, ok)
	assert.Equal(t, "second", trip.Farm)
}

func TestSelectOpenTrip_LaterDateWins(t *testing.T) {
	leftover := openTrip("ABC1234", "23:00")
	leftover.Date = "2026-10-15"
	today := openTrip("ABC1234", "08:00")

	for _, trips := range [][]models.VehicleTrip{{leftover, today}, {today, leftover}} {
		trip, count, ok := SelectOpenTrip("ABC1234", trips)
		require.True(t, ok)
		assert.Equal(t, 2, count)
		assert.Equal(t, "2026-10-16", trip.Date)
		assert.Equal(t, "08:00", trip.EntryTime)
	}

	undated := openTrip("ABC1234", "23:30")
	undated.Date = "16/10/2026"
	trip, _, ok := SelectOpenTrip("ABC1234", []models.VehicleTrip{today, undated})
	require.True(t, ok)
	assert.Equal(t, "08:00", trip.EntryTime)
}

func TestMonitor_StaleOpenTripFromEarlierDay(t *testing.T) {
	m := NewMonitor(zap.NewNop())
	leftover := openTrip("ABC1234", "23:00")
	leftover.Date = "2026-10-15"

	alerts := m.Alerts([]models.VehicleTrip{leftover, openTrip("ABC1234", "08:00")}, clock(9, 0))
	require.Len(t, alerts, 1)
	assert.Equal(t, "2026-10-16", alerts[0].Date)
	assert.Equal(t, 60, alerts[0].Elapsed)
	assert.Equal(t, TierDelayed, alerts[0].Tier)
	assert.Equal(t, "1h", alerts[0].Display)
}

func TestMonitor_AlertsAndAnomalyLog(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m := NewMonitor(zap.New(core))

	halted := openTrip("HLT0001", "08:00")
	halted.HaltFlag = true

	trips := []models.VehicleTrip{
		openTrip("AAA1111", "10:25"),
		openTrip("BBB2222", "10:00"),
		openTrip("BBB2222", "10:10"),
		halted,
		{Plate: "CCC3333", EntryTime: "09:00", ExitTime: "09:40"},
	}

	alerts := m.Alerts(trips, clock(10, 40))
	require.Len(t, alerts, 2)
	assert.Equal(t, "BBB2222", alerts[0].Plate)
	assert.Equal(t, 30, alerts[0].Elapsed)
	assert.Equal(t, TierDelayed, alerts[0].Tier)
	assert.Equal(t, "AAA1111", alerts[1].Plate)
	assert.Equal(t, 15, alerts[1].Elapsed)
	assert.Equal(t, 5, alerts[1].NextTierIn)
	assert.Equal(t, "15 min", alerts[1].Display)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Multiple open trips for plate", entry.Message)
	assert.Equal(t, "BBB2222", entry.ContextMap()["plate"])
}
