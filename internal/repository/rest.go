package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"guarita-loadqueue/internal/models"
	"guarita-loadqueue/internal/snapshot"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// RESTSource pulls records from the remote datastore's REST API
type RESTSource struct {
	httpClient  *resty.Client
	historyDays int
	clock       func() time.Time
	logger      *zap.Logger
}

// NewRESTSource creates a REST snapshot source; apiKey is sent as a bearer token when set
func NewRESTSource(baseURL, apiKey string, timeout time.Duration, historyDays int, logger *zap.Logger) *RESTSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &RESTSource{
		httpClient:  client,
		historyDays: historyDays,
		clock:       time.Now,
		logger:      logger,
	}
}

// FetchSnapshot pulls jobs, trips and time details; any failed call fails the whole pull
func (s *RESTSource) FetchSnapshot(ctx context.Context) (snapshot.Data, error) {
	since := tripsSince(s.clock(), s.historyDays)

	var jobs []models.LoadingJob
	if err := s.get(ctx, "/loading-jobs", nil, &jobs); err != nil {
		return snapshot.Data{}, err
	}
	var trips []models.VehicleTrip
	if err := s.get(ctx, "/vehicle-trips", map[string]string{"since": since}, &trips); err != nil {
		return snapshot.Data{}, err
	}
	var details []models.TripTimeDetail
	if err := s.get(ctx, "/trip-time-details", map[string]string{"since": since}, &details); err != nil {
		return snapshot.Data{}, err
	}

	for i := range trips {
		trips[i].Plate = models.NormalizePlate(trips[i].Plate)
	}

	s.logger.Debug("Fetched snapshot from REST store",
		zap.Int("jobs", len(jobs)),
		zap.Int("trips", len(trips)),
		zap.Int("time_details", len(details)),
	)

	return snapshot.Data{
		Jobs:        normalizeJobs(jobs, s.logger),
		Trips:       trips,
		TimeDetails: details,
	}, nil
}

func (s *RESTSource) get(ctx context.Context, path string, query map[string]string, out any) error {
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		Get(path)
	if err != nil {
		s.logger.Error("REST store call failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("store returned %d for %s", resp.StatusCode(), path)
	}
	return nil
}

// SaveJob writes job back with PUT /loading-jobs/{id}
func (s *RESTSource) SaveJob(ctx context.Context, job models.LoadingJob) error {
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", job.ID).
		SetBody(job).
		Put("/loading-jobs/{id}")
	if err != nil {
		return fmt.Errorf("failed to save loading job %s: %w", job.ID, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	case resp.IsError():
		return fmt.Errorf("store returned %d saving job %s", resp.StatusCode(), job.ID)
	}

	s.logger.Info("Saved loading job",
		zap.String("job_id", job.ID),
		zap.String("status", string(job.Status)),
	)
	return nil
}
