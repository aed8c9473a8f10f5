// Package repository pulls snapshots from the external store and writes
// validated job transitions back to it.
package repository

import (
	"context"
	"errors"
	"time"

	"guarita-loadqueue/internal/models"
	"guarita-loadqueue/internal/snapshot"

	"go.uber.org/zap"
)

// ErrJobNotFound the store has no job with the given id
var ErrJobNotFound = errors.New("job not found in store")

// SnapshotSource full pull of jobs, trips and time details
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) (snapshot.Data, error)
}

// JobWriter persists an updated job
type JobWriter interface {
	SaveJob(ctx context.Context, job models.LoadingJob) error
}

// Source both directions of the external store
type Source interface {
	SnapshotSource
	JobWriter
}

// tripsSince first trip date included in a pull; trips are history, jobs are pulled whole
func tripsSince(now time.Time, historyDays int) string {
	if historyDays <= 0 {
		historyDays = 62
	}
	return now.AddDate(0, 0, -historyDays).Format("2006-01-02")
}

// normalizeJobs maps legacy status values and drops rows with an unknown status
func normalizeJobs(jobs []models.LoadingJob, logger *zap.Logger) []models.LoadingJob {
	out := jobs[:0]
	for _, j := range jobs {
		status, err := models.ParseJobStatus(string(j.Status))
		if err != nil {
			logger.Warn("Skipping job with unknown status",
				zap.String("job_id", j.ID),
				zap.String("status", string(j.Status)),
			)
			continue
		}
		j.Status = status
		j.Plate = models.NormalizePlate(j.Plate)
		out = append(out, j)
	}
	return out
}
