package models

import "strings"

// VehicleTrip one field -> processing unit -> field cycle of a vehicle
type VehicleTrip struct {
	ID        string `json:"id,omitempty"`
	Plate     string `json:"plate"`
	Driver    string `json:"driver"`
	Farm      string `json:"farm"`
	Plot      string `json:"plot"`       // talhão
	Date      string `json:"date"`       // YYYY-MM-DD, local calendar day
	EntryTime string `json:"entry_time"` // HH:MM, empty when not entered
	ExitTime  string `json:"exit_time"`  // HH:MM, empty while inside the unit
	RollCount int    `json:"roll_count"`
	HaltFlag  bool   `json:"halt_flag"`
}

// IsOpen vehicle entered the unit and no exit was recorded
func (t VehicleTrip) IsOpen() bool {
	return strings.TrimSpace(t.EntryTime) != "" && strings.TrimSpace(t.ExitTime) == ""
}

// TripTimeDetail externally measured leg durations for one trip
type TripTimeDetail struct {
	Plate        string `json:"plate"`
	Date         string `json:"date"` // YYYY-MM-DD
	Time         string `json:"time"` // HH:MM, the trip's entry time
	FieldMinutes int    `json:"field_minutes"`
	UnitMinutes  int    `json:"unit_minutes"`
}

// TimeDetailKey lookup key of the time-detail feed
type TimeDetailKey struct {
	Plate string
	Date  string
	Time  string
}

// KeyOf normalizes plate and trims date/time
func KeyOf(plate, date, clock string) TimeDetailKey {
	return TimeDetailKey{
		Plate: NormalizePlate(plate),
		Date:  strings.TrimSpace(date),
		Time:  strings.TrimSpace(clock),
	}
}

// Key lookup key of the detail record
func (d TripTimeDetail) Key() TimeDetailKey {
	return KeyOf(d.Plate, d.Date, d.Time)
}
