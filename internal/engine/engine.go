// Package engine is the query and mutation surface over the current snapshot.
// Every method reads the snapshot once, so all values it returns are consistent
// with each other.
package engine

import (
	"errors"
	"fmt"
	"time"

	"guarita-loadqueue/internal/dwell"
	"guarita-loadqueue/internal/lifecycle"
	"guarita-loadqueue/internal/models"
	"guarita-loadqueue/internal/queue"
	"guarita-loadqueue/internal/ranking"
	"guarita-loadqueue/internal/snapshot"
	"guarita-loadqueue/internal/timeutil"

	"go.uber.org/zap"
)

// ErrJobNotFound the job id is not in the current snapshot
var ErrJobNotFound = errors.New("job not found")

// Engine derives views from the snapshot store
type Engine struct {
	store        *snapshot.Store
	monitor      *dwell.Monitor
	location     *time.Location
	rankingLimit int
	clock        func() time.Time
	logger       *zap.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces time.Now
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithRankingLimit top-N of ranking boards
func WithRankingLimit(n int) Option {
	return func(e *Engine) { e.rankingLimit = n }
}

// NewEngine creates an engine; loc is the facility timezone that defines "today"
func NewEngine(store *snapshot.Store, loc *time.Location, logger *zap.Logger, opts ...Option) *Engine {
	if loc == nil {
		loc = time.Local
	}
	e := &Engine{
		store:        store,
		monitor:      dwell.NewMonitor(logger),
		location:     loc,
		rankingLimit: ranking.DefaultLimit,
		clock:        time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now current time in the facility timezone
func (e *Engine) Now() time.Time {
	return e.clock().In(e.location)
}

// Location facility timezone
func (e *Engine) Location() *time.Location {
	return e.location
}

// Status refresh health of the snapshot being served
func (e *Engine) Status() snapshot.Status {
	return e.store.Status()
}

// Stale returns a *snapshot.StaleSnapshotError while the last refresh failed
func (e *Engine) Stale() error {
	return e.store.Err()
}

// GetQueueView queued jobs with positions; nil product returns every line
func (e *Engine) GetQueueView(product *models.Product) ([]QueuedJobView, error) {
	snap, err := e.store.Current()
	if err != nil {
		return nil, err
	}
	return queue.Lines(snap.Jobs, product), nil
}

// GetActiveView jobs in the inclusive loading list
func (e *Engine) GetActiveView() ([]ActiveJobView, error) {
	snap, err := e.store.Current()
	if err != nil {
		return nil, err
	}
	return activeView(snap.Jobs, e.Now()), nil
}

// GetCompletedToday jobs counted as completed on the current day
func (e *Engine) GetCompletedToday() ([]CompletedJobView, error) {
	snap, err := e.store.Current()
	if err != nil {
		return nil, err
	}
	return completedView(snap.Jobs, e.Now()), nil
}

// GetDwellAlerts vehicles inside the unit, longest dwell first
func (e *Engine) GetDwellAlerts() ([]DwellAlert, error) {
	snap, err := e.store.Current()
	if err != nil {
		return nil, err
	}
	return e.monitor.Alerts(snap.Trips, e.Now()), nil
}

// GetRanking plates of the window ranked by strategy, top limit of them;
// limit <= 0 uses the configured board size
func (e *Engine) GetRanking(w ranking.Window, s ranking.Strategy, limit int) ([]ranking.Entry, error) {
	snap, err := e.store.Current()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = e.rankingLimit
	}
	return ranking.RankByWindow(snap.Trips, w, s, limit), nil
}

// GetTimeReport field/unit time report of the window
func (e *Engine) GetTimeReport(w ranking.Window) (ranking.TimeReport, error) {
	snap, err := e.store.Current()
	if err != nil {
		return ranking.TimeReport{}, err
	}
	return ranking.BuildTimeReport(snap.Trips, ranking.IndexDetails(snap.TimeDetails), w), nil
}

// BuildViewModel derives every dashboard view from the same snapshot and instant
func (e *Engine) BuildViewModel() (*ViewModel, error) {
	snap, err := e.store.Current()
	if err != nil {
		return nil, err
	}
	now := e.Now()
	buckets := queue.Classify(snap.Jobs, now)

	return &ViewModel{
		SnapshotID:     snap.ID,
		Tick:           snap.Tick,
		GeneratedAt:    now,
		Status:         e.store.Status(),
		Summary:        summarize(buckets),
		Queue:          queue.Lines(snap.Jobs, nil),
		Active:         activeView(snap.Jobs, now),
		CompletedToday: completedView(snap.Jobs, now),
		DwellAlerts:    e.monitor.Alerts(snap.Trips, now),
		DailyRanking:   ranking.RankByWindow(snap.Trips, ranking.Day(now), ranking.ByRolls, e.rankingLimit),
		MonthlyTrips:   ranking.RankByWindow(snap.Trips, ranking.Month(now), ranking.ByTrips, e.rankingLimit),
		TimeReport:     ranking.BuildTimeReport(snap.Trips, ranking.IndexDetails(snap.TimeDetails), ranking.Day(now)),
	}, nil
}

// RequestTransition validates moving a job to target and returns the updated job.
// The caller persists it upstream; the snapshot is left untouched.
func (e *Engine) RequestTransition(jobID string, target models.JobStatus, fields lifecycle.Fields) (models.LoadingJob, error) {
	snap, err := e.store.Current()
	if err != nil {
		return models.LoadingJob{}, err
	}

	job, ok := findJob(snap.Jobs, jobID)
	if !ok {
		return models.LoadingJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	updated, err := lifecycle.Apply(job, target, fields, e.Now())
	if err != nil {
		var ve *lifecycle.ValidationError
		if errors.As(err, &ve) {
			e.logger.Info("Transition rejected",
				zap.String("job_id", jobID),
				zap.String("detail", ve.Detail()),
			)
		}
		return job, err
	}

	e.logger.Info("Transition accepted",
		zap.String("job_id", jobID),
		zap.String("from", string(job.Status)),
		zap.String("to", string(updated.Status)),
	)
	return updated, nil
}

func findJob(jobs []models.LoadingJob, id string) (models.LoadingJob, bool) {
	for _, j := range jobs {
		if j.ID == id {
			return j, true
		}
	}
	return models.LoadingJob{}, false
}

func activeView(jobs []models.LoadingJob, now time.Time) []ActiveJobView {
	var out []ActiveJobView
	for _, j := range jobs {
		if !lifecycle.InLoadingList(j, now) {
			continue
		}
		v := ActiveJobView{
			Job:             j,
			Card:            lifecycle.InLoadingCard(j),
			AwaitingInvoice: j.Status == models.StatusLoaded,
			Quantity:        j.Quantity(),
			ElapsedMinutes:  -1,
			ElapsedDisplay:  timeutil.Placeholder,
			NextTargets:     lifecycle.AllowedTargets(j.Status),
		}
		if j.EntryAt != nil {
			v.EntryClock = timeutil.ClockOf(j.EntryAt.In(now.Location()))
			v.ElapsedMinutes = minutesSince(*j.EntryAt, now)
			v.ElapsedDisplay = timeutil.FormatMinutes(v.ElapsedMinutes)
		}
		out = append(out, v)
	}
	return out
}

func completedView(jobs []models.LoadingJob, now time.Time) []CompletedJobView {
	var out []CompletedJobView
	for _, j := range jobs {
		if !lifecycle.InCompletedToday(j, now) {
			continue
		}
		v := CompletedJobView{
			Job:             j,
			Quantity:        j.Quantity(),
			Exited:          j.ExitAt != nil,
			DurationMinutes: -1,
			DurationDisplay: timeutil.Placeholder,
		}
		if j.ExitAt != nil {
			v.ExitClock = timeutil.ClockOf(j.ExitAt.In(now.Location()))
		}
		end := j.ExitAt
		if j.LoadedAt != nil {
			end = j.LoadedAt
		}
		if j.EntryAt != nil && end != nil {
			v.DurationMinutes = minutesSince(*j.EntryAt, *end)
			v.DurationDisplay = timeutil.FormatMinutes(v.DurationMinutes)
		}
		out = append(out, v)
	}
	return out
}

func summarize(b queue.Buckets) []ProductSummary {
	index := make(map[string]int)
	out := make([]ProductSummary, 0, len(models.CoreProducts))
	slot := func(p models.Product) *ProductSummary {
		i, ok := index[p.Key()]
		if !ok {
			i = len(out)
			index[p.Key()] = i
			out = append(out, ProductSummary{Product: p})
		}
		return &out[i]
	}
	for _, p := range models.CoreProducts {
		slot(p)
	}

	for _, j := range b.Queued {
		slot(j.Product).Queued++
	}
	for _, j := range b.LoadingCards {
		slot(j.Product).Loading++
	}
	for _, j := range b.CompletedToday {
		s := slot(j.Product)
		s.CompletedToday++
		q := j.Quantity()
		if !q.Set {
			continue
		}
		if q.Unit == models.UnitBales {
			s.Bales += int(q.Value)
		} else {
			s.WeightKg += q.Value
		}
	}
	return out
}

func minutesSince(from, to time.Time) int {
	d := int(to.Sub(from) / time.Minute)
	return max(d, 0)
}
