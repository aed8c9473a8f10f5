// Package ranking aggregates vehicle trip history by plate over a day or a
// month and joins externally measured leg times into time-management reports.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"guarita-loadqueue/internal/models"
)

// Strategy metric a ranking is sorted by
type Strategy string

const (
	ByRolls Strategy = "rolls"
	ByTrips Strategy = "trips"
)

// DefaultLimit top-N of the dashboard boards
const DefaultLimit = 10

// ParseStrategy empty means ByRolls
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ByRolls:
		return ByRolls, nil
	case ByTrips:
		return ByTrips, nil
	default:
		return "", fmt.Errorf("unknown ranking strategy %q", s)
	}
}

// Entry one plate in a ranking
type Entry struct {
	Rank      int    `json:"rank"`
	Plate     string `json:"plate"`
	Driver    string `json:"driver"`
	TripCount int    `json:"trip_count"`
	RollCount int    `json:"roll_count"`
}

// Aggregate groups the window's trips by plate in order of first appearance.
// Driver is the last driver seen for the plate in trips order, blank included.
func Aggregate(trips []models.VehicleTrip, w Window) []Entry {
	index := make(map[string]int)
	var out []Entry
	for _, t := range trips {
		if !w.Contains(t.Date) {
			continue
		}
		plate := models.NormalizePlate(t.Plate)
		if plate == "" {
			continue
		}
		i, ok := index[plate]
		if !ok {
			i = len(out)
			index[plate] = i
			out = append(out, Entry{Plate: plate})
		}
		out[i].TripCount++
		out[i].RollCount += t.RollCount
		out[i].Driver = strings.TrimSpace(t.Driver)
	}
	return out
}

// RankByWindow sorts the window's plates by strategy, descending. Ties fall to
// the other metric, then plate. limit <= 0 keeps every plate.
func RankByWindow(trips []models.VehicleTrip, w Window, s Strategy, limit int) []Entry {
	entries := Aggregate(trips, w)

	primary := func(e Entry) (int, int) { return e.RollCount, e.TripCount }
	if s == ByTrips {
		primary = func(e Entry) (int, int) { return e.TripCount, e.RollCount }
	}
	sort.SliceStable(entries, func(a, b int) bool {
		pa, sa := primary(entries[a])
		pb, sb := primary(entries[b])
		if pa != pb {
			return pa > pb
		}
		if sa != sb {
			return sa > sb
		}
		return entries[a].Plate < entries[b].Plate
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
