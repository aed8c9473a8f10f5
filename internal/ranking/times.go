package ranking

import (
	"math"
	"sort"
	"strings"

	"guarita-loadqueue/internal/models"
	"guarita-loadqueue/internal/timeutil"
)

// DetailLookup keyed access to the time-detail feed
type DetailLookup interface {
	Lookup(key models.TimeDetailKey) (models.TripTimeDetail, bool)
}

// DetailIndex in-memory DetailLookup; a later record replaces an earlier one with the same key
type DetailIndex map[models.TimeDetailKey]models.TripTimeDetail

// IndexDetails builds a DetailIndex from the feed
func IndexDetails(details []models.TripTimeDetail) DetailIndex {
	ix := make(DetailIndex, len(details))
	for _, d := range details {
		ix[d.Key()] = d
	}
	return ix
}

func (ix DetailIndex) Lookup(key models.TimeDetailKey) (models.TripTimeDetail, bool) {
	d, ok := ix[key]
	return d, ok
}

// LegTimes field and unit legs of one trip, in minutes
type LegTimes struct {
	Date         string `json:"date"`
	EntryTime    string `json:"entry_time"`
	Driver       string `json:"driver"`
	FieldMinutes int    `json:"field_minutes"`
	UnitMinutes  int    `json:"unit_minutes"`
	TotalMinutes int    `json:"total_minutes"`
}

// PerPlateTimeBreakdown joins every trip with its time detail by (plate, date, entry time).
// Trips without a detail record are left out rather than counted as zero.
func PerPlateTimeBreakdown(trips []models.VehicleTrip, lookup DetailLookup) map[string][]LegTimes {
	out := make(map[string][]LegTimes)
	for _, t := range trips {
		if strings.TrimSpace(t.EntryTime) == "" {
			continue
		}
		key := models.KeyOf(t.Plate, t.Date, t.EntryTime)
		d, ok := lookup.Lookup(key)
		if !ok {
			continue
		}
		out[key.Plate] = append(out[key.Plate], LegTimes{
			Date:         key.Date,
			EntryTime:    key.Time,
			Driver:       t.Driver,
			FieldMinutes: d.FieldMinutes,
			UnitMinutes:  d.UnitMinutes,
			TotalMinutes: d.FieldMinutes + d.UnitMinutes,
		})
	}
	return out
}

// AverageOverWindow arithmetic means of the unit and field legs; 0 for no records
func AverageOverWindow(details []models.TripTimeDetail) (avgUnit, avgField float64) {
	if len(details) == 0 {
		return 0, 0
	}
	var unit, field int
	for _, d := range details {
		unit += d.UnitMinutes
		field += d.FieldMinutes
	}
	n := float64(len(details))
	return float64(unit) / n, float64(field) / n
}

// PlateTimes breakdown of one plate in a time report
type PlateTimes struct {
	Plate           string     `json:"plate"`
	Driver          string     `json:"driver"`
	Trips           []LegTimes `json:"trips"`
	AvgUnitMinutes  float64    `json:"avg_unit_minutes"`
	AvgFieldMinutes float64    `json:"avg_field_minutes"`
	AvgUnitDisplay  string     `json:"avg_unit_display"`
	AvgFieldDisplay string     `json:"avg_field_display"`
}

// TimeReport time-management report of a window
type TimeReport struct {
	Window          Window       `json:"window"`
	TripCount       int          `json:"trip_count"`
	AvgUnitMinutes  float64      `json:"avg_unit_minutes"`
	AvgFieldMinutes float64      `json:"avg_field_minutes"`
	AvgUnitDisplay  string       `json:"avg_unit_display"`
	AvgFieldDisplay string       `json:"avg_field_display"`
	Plates          []PlateTimes `json:"plates"`
}

// BuildTimeReport joins the window's trips with their details and averages the legs,
// overall and per plate. Plates are sorted by plate.
func BuildTimeReport(trips []models.VehicleTrip, lookup DetailLookup, w Window) TimeReport {
	var inWindow []models.VehicleTrip
	for _, t := range trips {
		if w.Contains(t.Date) {
			inWindow = append(inWindow, t)
		}
	}

	report := TimeReport{Window: w}
	var all []models.TripTimeDetail
	for plate, legs := range PerPlateTimeBreakdown(inWindow, lookup) {
		details := asDetails(plate, legs)
		all = append(all, details...)

		pt := PlateTimes{Plate: plate, Trips: legs}
		for _, l := range legs {
			if l.Driver != "" {
				pt.Driver = l.Driver
			}
		}
		pt.AvgUnitMinutes, pt.AvgFieldMinutes = AverageOverWindow(details)
		pt.AvgUnitDisplay = displayAverage(pt.AvgUnitMinutes)
		pt.AvgFieldDisplay = displayAverage(pt.AvgFieldMinutes)
		report.Plates = append(report.Plates, pt)
	}
	sort.Slice(report.Plates, func(a, b int) bool {
		return report.Plates[a].Plate < report.Plates[b].Plate
	})

	report.TripCount = len(all)
	report.AvgUnitMinutes, report.AvgFieldMinutes = AverageOverWindow(all)
	report.AvgUnitDisplay = displayAverage(report.AvgUnitMinutes)
	report.AvgFieldDisplay = displayAverage(report.AvgFieldMinutes)
	return report
}

func asDetails(plate string, legs []LegTimes) []models.TripTimeDetail {
	out := make([]models.TripTimeDetail, len(legs))
	for i, l := range legs {
		out[i] = models.TripTimeDetail{
			Plate:        plate,
			Date:         l.Date,
			Time:         l.EntryTime,
			FieldMinutes: l.FieldMinutes,
			UnitMinutes:  l.UnitMinutes,
		}
	}
	return out
}

func displayAverage(minutes float64) string {
	return timeutil.FormatMinutes(int(math.Round(minutes)))
}
