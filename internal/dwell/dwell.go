// Package dwell tracks how long vehicles have been inside the processing unit.
// Elapsed time is always derived from the trip's entry clock and now; nothing
// is counted or stored between refreshes.
package dwell

import (
	"sort"
	"time"

	"guarita-loadqueue/internal/models"
	"guarita-loadqueue/internal/timeutil"
)

// Tier alert classification of a dwell time
type Tier string

const (
	TierNormal  Tier = "normal"
	TierSlow    Tier = "slow"
	TierDelayed Tier = "delayed"
)

// Tier thresholds in minutes
const (
	SlowAfterMinutes    = 20
	DelayedAfterMinutes = 30
)

// Classify maps elapsed minutes onto a tier
func Classify(elapsed int) Tier {
	switch {
	case elapsed >= DelayedAfterMinutes:
		return TierDelayed
	case elapsed >= SlowAfterMinutes:
		return TierSlow
	default:
		return TierNormal
	}
}

// Severity orders tiers, Normal lowest
func (t Tier) Severity() int {
	switch t {
	case TierSlow:
		return 1
	case TierDelayed:
		return 2
	default:
		return 0
	}
}

// NextTierIn minutes until elapsed reaches the next tier, 0 once Delayed
func NextTierIn(elapsed int) int {
	switch Classify(elapsed) {
	case TierNormal:
		return SlowAfterMinutes - max(elapsed, 0)
	case TierSlow:
		return DelayedAfterMinutes - elapsed
	default:
		return 0
	}
}

// SelectOpenTrip finds the open trip of plate. When the data holds several open
// trips for one plate, the most recently opened one wins: later date first, then
// later entry clock, and equal (date, clock) pairs go to the one later in trips.
// count is the number of open trips matched.
func SelectOpenTrip(plate string, trips []models.VehicleTrip) (trip models.VehicleTrip, count int, ok bool) {
	want := models.NormalizePlate(plate)
	var bestDate string
	bestClock := -1
	for _, t := range trips {
		if !t.IsOpen() || models.NormalizePlate(t.Plate) != want {
			continue
		}
		count++
		date, entry := openedAt(t)
		if !ok || date > bestDate || (date == bestDate && entry >= bestClock) {
			trip, bestDate, bestClock, ok = t, date, entry, true
		}
	}
	return trip, count, ok
}

// openedAt sortable opening key of a trip; malformed parts sort first
func openedAt(t models.VehicleTrip) (string, int) {
	date := ""
	if d, err := timeutil.ParseDate(t.Date, time.UTC); err == nil {
		date = timeutil.DateOf(d)
	}
	entry, err := timeutil.ParseClock(t.EntryTime)
	if err != nil {
		entry = -1
	}
	return date, entry
}

// ElapsedMinutes minutes from the trip's entry clock to now's wall clock, same day.
// Halted, closed or malformed trips report false. Entry clocks later than now clamp to 0.
func ElapsedMinutes(trip models.VehicleTrip, now time.Time) (int, bool) {
	if trip.HaltFlag || !trip.IsOpen() {
		return 0, false
	}
	entry, err := timeutil.ParseClock(trip.EntryTime)
	if err != nil {
		return 0, false
	}
	return max(timeutil.MinuteOfDay(now)-entry, 0), true
}

// Countdown live dwell state of one vehicle inside the unit
type Countdown struct {
	Plate      string `json:"plate"`
	Driver     string `json:"driver"`
	Farm       string `json:"farm"`
	Plot       string `json:"plot"`
	Date       string `json:"date"`
	EntryTime  string `json:"entry_time"`
	Elapsed    int    `json:"elapsed_minutes"`
	Tier       Tier   `json:"tier"`
	NextTierIn int    `json:"next_tier_in_minutes"`
	Display    string `json:"display"`
}

// NewCountdown builds the countdown of trip at now; false when no dwell applies
func NewCountdown(trip models.VehicleTrip, now time.Time) (Countdown, bool) {
	elapsed, ok := ElapsedMinutes(trip, now)
	if !ok {
		return Countdown{}, false
	}
	return Countdown{
		Plate:      models.NormalizePlate(trip.Plate),
		Driver:     trip.Driver,
		Farm:       trip.Farm,
		Plot:       trip.Plot,
		Date:       trip.Date,
		EntryTime:  trip.EntryTime,
		Elapsed:    elapsed,
		Tier:       Classify(elapsed),
		NextTierIn: NextTierIn(elapsed),
		Display:    timeutil.FormatMinutes(elapsed),
	}, true
}

// OpenPlates distinct plates with an open trip, in order of first appearance
func OpenPlates(trips []models.VehicleTrip) []string {
	seen := make(map[string]bool)
	var plates []string
	for _, t := range trips {
		if !t.IsOpen() {
			continue
		}
		p := models.NormalizePlate(t.Plate)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		plates = append(plates, p)
	}
	return plates
}

// SortCountdowns longest dwell first, then plate
func SortCountdowns(cs []Countdown) {
	sort.SliceStable(cs, func(a, b int) bool {
		if cs[a].Elapsed != cs[b].Elapsed {
			return cs[a].Elapsed > cs[b].Elapsed
		}
		return cs[a].Plate < cs[b].Plate
	})
}
