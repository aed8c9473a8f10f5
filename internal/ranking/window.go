package ranking

import (
	"fmt"
	"strings"
	"time"

	"guarita-loadqueue/internal/timeutil"
)

// WindowKind granularity of an aggregation window
type WindowKind string

const (
	WindowDay   WindowKind = "day"
	WindowMonth WindowKind = "month"
)

// Window a calendar day ("2026-10-16") or a month ("2026-10")
type Window struct {
	Kind WindowKind `json:"kind"`
	Date string     `json:"date"`
}

// Day window of the calendar day of t
func Day(t time.Time) Window {
	return Window{Kind: WindowDay, Date: timeutil.DateOf(t)}
}

// Month window of the month of t
func Month(t time.Time) Window {
	return Window{Kind: WindowMonth, Date: timeutil.MonthOf(t)}
}

// ParseWindow builds a window from query values. An empty kind means day and an
// empty date means the window containing now. Month windows accept "YYYY-MM" or
// a full date.
func ParseWindow(kind, date string, now time.Time) (Window, error) {
	date = strings.TrimSpace(date)
	switch WindowKind(strings.ToLower(strings.TrimSpace(kind))) {
	case "", WindowDay:
		if date == "" {
			return Day(now), nil
		}
		if _, err := timeutil.ParseDate(date, now.Location()); err != nil {
			return Window{}, err
		}
		return Window{Kind: WindowDay, Date: date}, nil
	case WindowMonth:
		if date == "" {
			return Month(now), nil
		}
		if len(date) == len("2006-01") {
			if _, err := time.Parse("2006-01", date); err != nil {
				return Window{}, &timeutil.MalformedTimeError{Kind: "date", Value: date}
			}
			return Window{Kind: WindowMonth, Date: date}, nil
		}
		d, err := timeutil.ParseDate(date, now.Location())
		if err != nil {
			return Window{}, err
		}
		return Month(d), nil
	default:
		return Window{}, fmt.Errorf("unknown window %q", kind)
	}
}

// Contains reports whether a trip date ("YYYY-MM-DD") falls inside the window
func (w Window) Contains(date string) bool {
	date = strings.TrimSpace(date)
	switch w.Kind {
	case WindowDay:
		return date == w.Date
	case WindowMonth:
		return strings.HasPrefix(date, w.Date+"-")
	default:
		return false
	}
}
