package ranking

import (
	"testing"
	"time"

	"guarita-loadqueue/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trip(plate, driver, date string, rolls int) models.VehicleTrip {
	return models.VehicleTrip{Plate: plate, Driver: driver, Date: date, EntryTime: "08:00", ExitTime: "08:30", RollCount: rolls}
}

func TestRankByWindow_DaySumsRolls(t *testing.T) {
	trips := []models.VehicleTrip{
		trip("ABC1234", "Joao", "2026-10-16", 40),
		trip("XYZ9876", "Maria", "2026-10-16", 70),
		trip("ABC-1234", "Joao", "2026-10-16", 60),
		trip("ABC1234", "Joao", "2026-10-15", 500),
	}

	got := RankByWindow(trips, Window{Kind: WindowDay, Date: "2026-10-16"}, ByRolls, DefaultLimit)
	require.Len(t, got, 2)
	assert.Equal(t, Entry{Rank: 1, Plate: "ABC1234", Driver: "Joao", TripCount: 2, RollCount: 100}, got[0])
	assert.Equal(t, Entry{Rank: 2, Plate: "XYZ9876", Driver: "Maria", TripCount: 1, RollCount: 70}, got[1])
}

func TestRankByWindow_MonthAndStrategies(t *testing.T) {
	trips := []models.VehicleTrip{
		trip("AAA1111", "Ana", "2026-10-01", 10),
		trip("AAA1111", "Ana", "2026-10-02", 10),
		trip("AAA1111", "Ana", "2026-10-03", 10),
		trip("BBB2222", "Beto", "2026-10-20", 90),
		trip("CCC3333", "Caio", "2026-09-30", 999),
		trip("DDD4444", "Dani", "2026-100-01", 999),
	}
	month := Window{Kind: WindowMonth, Date: "2026-10"}

	byRolls := RankByWindow(trips, month, ByRolls, 0)
	require.Len(t, byRolls, 2)
	assert.Equal(t, "BBB2222", byRolls[0].Plate)

	byTrips := RankByWindow(trips, month, ByTrips, 0)
	require.Len(t, byTrips, 2)
	assert.Equal(t, "AAA1111", byTrips[0].Plate)
	assert.Equal(t, 3, byTrips[0].TripCount)
	assert.Equal(t, 30, byTrips[0].RollCount)
}

func TestRankByWindow_LastSeenDriverAndTies(t *testing.T) {
	trips := []models.VehicleTrip{
		trip("BBB2222", "Beto", "2026-10-16", 50),
		trip("AAA1111", "Ana", "2026-10-16", 50),
		trip("AAA1111", "", "2026-10-16", 0),
		trip("AAA1111", "Carlos", "2026-10-16", 0),
		trip("BBB2222", "", "2026-10-16", 0),
	}
	got := RankByWindow(trips, Window{Kind: WindowDay, Date: "2026-10-16"}, ByRolls, 0)
	require.Len(t, got, 2)
	assert.Equal(t, "AAA1111", got[0].Plate, "equal rolls, more trips wins")
	assert.Equal(t, "Carlos", got[0].Driver)
	assert.Equal(t, "", got[1].Driver, "last record wins even when blank")

	trips = []models.VehicleTrip{
		trip("ZZZ9999", "Z", "2026-10-16", 5),
		trip("MMM5555", "M", "2026-10-16", 5),
	}
	got = RankByWindow(trips, Window{Kind: WindowDay, Date: "2026-10-16"}, ByTrips, 0)
	assert.Equal(t, "MMM5555", got[0].Plate)
}

func TestRankByWindow_Limit(t *testing.T) {
	var trips []models.VehicleTrip
	for i := 0; i < 15; i++ {
		trips = append(trips, trip(string(rune('A'+i))+"AA0000", "d", "2026-10-16", i))
	}
	got := RankByWindow(trips, Window{Kind: WindowDay, Date: "2026-10-16"}, ByRolls, DefaultLimit)
	require.Len(t, got, 10)
	assert.Equal(t, 14, got[0].RollCount)
	assert.Equal(t, 10, got[9].Rank)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, ByRolls, s)

	s, err = ParseStrategy("Trips")
	require.NoError(t, err)
	assert.Equal(t, ByTrips, s)

	_, err = ParseStrategy("weight")
	assert.Error(t, err)
}

func TestParseWindow(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))

	w, err := ParseWindow("", "", now)
	require.NoError(t, err)
	assert.Equal(t, Window{Kind: WindowDay, Date: "2026-10-16"}, w)

	w, err = ParseWindow("month", "", now)
	require.NoError(t, err)
	assert.Equal(t, Window{Kind: WindowMonth, Date: "2026-10"}, w)

	w, err = ParseWindow("month", "2026-09-12", now)
	require.NoError(t, err)
	assert.Equal(t, Window{Kind: WindowMonth, Date: "2026-09"}, w)

	w, err = ParseWindow("month", "2026-08", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-08", w.Date)

	_, err = ParseWindow("day", "16/10/2026", now)
	assert.Error(t, err)
	_, err = ParseWindow("year", "", now)
	assert.Error(t, err)

	assert.True(t, Window{Kind: WindowMonth, Date: "2026-10"}.Contains("2026-10-31"))
	assert.False(t, Window{Kind: WindowMonth, Date: "2026-1"}.Contains("2026-10-01"))
}
