package lifecycle

import (
	"time"

	"guarita-loadqueue/internal/models"
	"guarita-loadqueue/internal/timeutil"
)

// IsQueued queued bucket
func IsQueued(j models.LoadingJob) bool {
	return j.Status == models.StatusQueued
}

// InLoadingCard strict bucket: loading with no exit recorded
func InLoadingCard(j models.LoadingJob) bool {
	return j.Status == models.StatusLoading && j.ExitAt == nil
}

// InLoadingList inclusive bucket: loading, or loaded today and still awaiting exit/invoice
func InLoadingList(j models.LoadingJob, now time.Time) bool {
	if j.ExitAt != nil {
		return false
	}
	if j.Status == models.StatusLoading {
		return true
	}
	return j.Status == models.StatusLoaded && j.LoadedAt != nil && timeutil.SameDay(*j.LoadedAt, now)
}

// InCompletedToday a job counts as completed on the day it was loaded, even before
// its exit is recorded. Jobs without loadedAt fall back to the exit day.
func InCompletedToday(j models.LoadingJob, now time.Time) bool {
	if j.LoadedAt != nil {
		return timeutil.SameDay(*j.LoadedAt, now)
	}
	return j.ExitAt != nil && timeutil.SameDay(*j.ExitAt, now)
}
