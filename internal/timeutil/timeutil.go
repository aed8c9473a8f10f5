// Package timeutil converts gate clock strings ("HH:MM") and calendar dates
// ("YYYY-MM-DD") into minute offsets and back into display text.
//
// Every exported helper degrades instead of failing: malformed input yields a
// zero duration or the "-" placeholder so a single bad record cannot blank a view.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Placeholder shown when a duration cannot be derived
const Placeholder = "-"

const (
	minutesPerDay = 24 * 60
	dateLayout    = "2006-01-02"
)

// MalformedTimeError reports an unparseable clock or date string
type MalformedTimeError struct {
	Kind  string // "clock" or "date"
	Value string
}

func (e *MalformedTimeError) Error() string {
	return fmt.Sprintf("malformed %s value %q", e.Kind, e.Value)
}

// ParseClock parses "HH:MM" (also "H:MM" and "HH:MM:SS") into minutes since midnight
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, &MalformedTimeError{Kind: "clock", Value: s}
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, &MalformedTimeError{Kind: "clock", Value: s}
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || m < 0 || m > 59 {
		return 0, &MalformedTimeError{Kind: "clock", Value: s}
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, &MalformedTimeError{Kind: "clock", Value: s}
		}
	}

	return h*60 + m, nil
}

// ParseDate parses "YYYY-MM-DD" as a calendar day in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, &MalformedTimeError{Kind: "date", Value: s}
	}
	return d, nil
}

// Combine joins a date and a clock string into a timestamp in loc
func Combine(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(m) * time.Minute), nil
}

// MinutesBetween returns the minutes from start to end on a wall clock.
// A negative difference is read as one midnight crossing. Malformed input yields 0.
func MinutesBetween(startHHMM, endHHMM string) int {
	start, err := ParseClock(startHHMM)
	if err != nil {
		return 0
	}
	end, err := ParseClock(endHHMM)
	if err != nil {
		return 0
	}

	diff := end - start
	if diff < 0 {
		diff += minutesPerDay
	}
	return diff
}

// MinutesBetweenDates is the date-aware variant of MinutesBetween.
// Different dates use the full timestamp difference; no rollover is assumed.
// Malformed input or an end before start yields 0.
func MinutesBetweenDates(startDate, startTime, endDate, endTime string) int {
	if strings.TrimSpace(startDate) == strings.TrimSpace(endDate) {
		start, err := ParseClock(startTime)
		if err != nil {
			return 0
		}
		end, err := ParseClock(endTime)
		if err != nil || end < start {
			return 0
		}
		return end - start
	}

	start, err := Combine(startDate, startTime, time.UTC)
	if err != nil {
		return 0
	}
	end, err := Combine(endDate, endTime, time.UTC)
	if err != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

// FormatMinutes renders "45 min", "1h" or "1h 30min". Negative values render as "-".
func FormatMinutes(n int) string {
	if n < 0 {
		return Placeholder
	}
	if n < 60 {
		return fmt.Sprintf("%d min", n)
	}
	h, m := n/60, n%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dmin", h, m)
}

// ClockOf returns the "HH:MM" wall clock of t
func ClockOf(t time.Time) string {
	return t.Format("15:04")
}

// MinuteOfDay returns minutes since midnight of t in its own location
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// DateOf returns the "YYYY-MM-DD" calendar day of t
func DateOf(t time.Time) string {
	return t.Format(dateLayout)
}

// MonthOf returns the "YYYY-MM" prefix of t
func MonthOf(t time.Time) string {
	return t.Format("2006-01")
}

// SameDay reports whether a falls on the calendar day of ref, evaluated in ref's location
func SameDay(a, ref time.Time) bool {
	a = a.In(ref.Location())
	ay, am, ad := a.Date()
	ry, rm, rd := ref.Date()
	return ay == ry && am == rm && ad == rd
}
