// Package lifecycle validates and applies loading-job state transitions:
//
//	Queued -> Loading -> Loaded -> Completed
//	            \___________________/  (direct exit)
//
// Transitions never mutate their input; they return an updated copy that the
// caller persists upstream.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"guarita-loadqueue/internal/models"
	"guarita-loadqueue/internal/timeutil"
)

// Rejection reasons
const (
	ReasonInvalidTransition = "invalid transition"
	ReasonEntryTimeRequired = "entry time required"
	ReasonInvalidEntryTime  = "invalid entry date/time"
	ReasonQuantityRequired  = "bales or weight required"
	ReasonNegativeQuantity  = "quantity must not be negative"
	ReasonExitTimeRequired  = "exit time required"
	ReasonInvalidExitTime   = "invalid exit date/time"
)

// ValidationError a requested transition is missing data or not allowed
type ValidationError struct {
	JobID  string
	From   models.JobStatus
	To     models.JobStatus
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Detail includes the job and the attempted transition
func (e *ValidationError) Detail() string {
	return fmt.Sprintf("job %s: %s -> %s: %s", e.JobID, e.From, e.To, e.Reason)
}

// Fields data submitted with a transition request
type Fields struct {
	EntryDate     string   `json:"entry_date,omitempty"`
	EntryTime     string   `json:"entry_time,omitempty"`
	ExitDate      string   `json:"exit_date,omitempty"`
	ExitTime      string   `json:"exit_time,omitempty"`
	Bales         *int     `json:"bales,omitempty"`
	WeightKg      *float64 `json:"weight_kg,omitempty"`
	InvoiceNumber string   `json:"invoice_number,omitempty"`
}

var allowed = map[models.JobStatus][]models.JobStatus{
	models.StatusQueued:  {models.StatusLoading},
	models.StatusLoading: {models.StatusLoaded, models.StatusCompleted},
	models.StatusLoaded:  {models.StatusCompleted},
}

// AllowedTargets states reachable from from; Completed has none
func AllowedTargets(from models.JobStatus) []models.JobStatus {
	out := make([]models.JobStatus, len(allowed[from]))
	copy(out, allowed[from])
	return out
}

// CanTransition reports whether from -> to is an edge of the lifecycle
func CanTransition(from, to models.JobStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Apply validates job -> target and returns the updated copy.
// Dates and clocks in f are read in now's location; loadedAt is set to now.
func Apply(job models.LoadingJob, target models.JobStatus, f Fields, now time.Time) (models.LoadingJob, error) {
	reject := func(reason string) (models.LoadingJob, error) {
		return job, &ValidationError{JobID: job.ID, From: job.Status, To: target, Reason: reason}
	}

	if !CanTransition(job.Status, target) {
		return reject(ReasonInvalidTransition)
	}

	out := job.Clone()
	loc := now.Location()

	switch target {
	case models.StatusLoading:
		if blank(f.EntryDate) || blank(f.EntryTime) {
			return reject(ReasonEntryTimeRequired)
		}
		entryAt, err := timeutil.Combine(f.EntryDate, f.EntryTime, loc)
		if err != nil {
			return reject(ReasonInvalidEntryTime)
		}
		out.EntryAt = &entryAt
		out.Status = models.StatusLoading

	case models.StatusLoaded:
		if f.Bales == nil && f.WeightKg == nil {
			return reject(ReasonQuantityRequired)
		}
		if negative(f) {
			return reject(ReasonNegativeQuantity)
		}
		applyQuantities(&out, f)
		loadedAt := now
		out.LoadedAt = &loadedAt
		out.ExitAt = nil
		out.InvoiceNumber = ""
		out.Status = models.StatusLoaded

	case models.StatusCompleted:
		if blank(f.ExitDate) || blank(f.ExitTime) {
			return reject(ReasonExitTimeRequired)
		}
		exitAt, err := timeutil.Combine(f.ExitDate, f.ExitTime, loc)
		if err != nil {
			return reject(ReasonInvalidExitTime)
		}
		if negative(f) {
			return reject(ReasonNegativeQuantity)
		}
		applyQuantities(&out, f)
		if inv := strings.TrimSpace(f.InvoiceNumber); inv != "" {
			out.InvoiceNumber = inv
		}
		out.ExitAt = &exitAt
		out.Status = models.StatusCompleted
	}

	return out, nil
}

// applyQuantities submitted values win, absent ones keep the previous value
func applyQuantities(job *models.LoadingJob, f Fields) {
	if f.Bales != nil {
		b := *f.Bales
		job.Bales = &b
	}
	if f.WeightKg != nil {
		w := *f.WeightKg
		job.WeightKg = &w
	}
}

func negative(f Fields) bool {
	return (f.Bales != nil && *f.Bales < 0) || (f.WeightKg != nil && *f.WeightKg < 0)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
