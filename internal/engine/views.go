package engine

import (
	"time"

	"guarita-loadqueue/internal/dwell"
	"guarita-loadqueue/internal/models"
	"guarita-loadqueue/internal/queue"
	"guarita-loadqueue/internal/ranking"
	"guarita-loadqueue/internal/snapshot"
)

// QueuedJobView a queued job with its FIFO position
type QueuedJobView = queue.Entry

// ActiveJobView a job in the loading list
type ActiveJobView struct {
	Job             models.LoadingJob  `json:"job"`
	Card            bool               `json:"card"`
	AwaitingInvoice bool               `json:"awaiting_invoice"`
	Quantity        models.Quantity    `json:"quantity"`
	EntryClock      string             `json:"entry_clock,omitempty"`
	ElapsedMinutes  int                `json:"elapsed_minutes"`
	ElapsedDisplay  string             `json:"elapsed_display"`
	NextTargets     []models.JobStatus `json:"next_targets"`
}

// CompletedJobView a job counted in today's throughput
type CompletedJobView struct {
	Job             models.LoadingJob `json:"job"`
	Quantity        models.Quantity   `json:"quantity"`
	Exited          bool              `json:"exited"`
	ExitClock       string            `json:"exit_clock,omitempty"`
	DurationMinutes int               `json:"duration_minutes"`
	DurationDisplay string            `json:"duration_display"`
}

// DwellAlert live dwell of one vehicle inside the unit
type DwellAlert = dwell.Countdown

// ProductSummary per-product counters of the dashboard header
type ProductSummary struct {
	Product        models.Product `json:"product"`
	Queued         int            `json:"queued"`
	Loading        int            `json:"loading"`
	CompletedToday int            `json:"completed_today"`
	Bales          int            `json:"bales"`
	WeightKg       float64        `json:"weight_kg"`
}

// ViewModel every view derived from one snapshot at one instant
type ViewModel struct {
	SnapshotID     string             `json:"snapshot_id"`
	Tick           uint64             `json:"tick"`
	GeneratedAt    time.Time          `json:"generated_at"`
	Status         snapshot.Status    `json:"status"`
	Summary        []ProductSummary   `json:"summary"`
	Queue          []QueuedJobView    `json:"queue"`
	Active         []ActiveJobView    `json:"active"`
	CompletedToday []CompletedJobView `json:"completed_today"`
	DwellAlerts    []DwellAlert       `json:"dwell_alerts"`
	DailyRanking   []ranking.Entry    `json:"daily_ranking"`
	MonthlyTrips   []ranking.Entry    `json:"monthly_trips"`
	TimeReport     ranking.TimeReport `json:"time_report"`
}
