package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"guarita-loadqueue/internal/models"
	"guarita-loadqueue/internal/snapshot"

	"go.uber.org/zap"
)

// PostgresSource reads loading_jobs, vehicle_trips and trip_time_details
type PostgresSource struct {
	db          *sql.DB
	historyDays int
	clock       func() time.Time
	logger      *zap.Logger
}

// NewPostgresSource creates a snapshot source over db; historyDays bounds the trip history pulled
func NewPostgresSource(db *sql.DB, historyDays int, logger *zap.Logger) *PostgresSource {
	return &PostgresSource{
		db:          db,
		historyDays: historyDays,
		clock:       time.Now,
		logger:      logger,
	}
}

// FetchSnapshot pulls every job and the recent trip history in one read-only transaction
func (r *PostgresSource) FetchSnapshot(ctx context.Context) (snapshot.Data, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return snapshot.Data{}, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	since := tripsSince(r.clock(), r.historyDays)

	jobs, err := r.queryJobs(ctx, tx)
	if err != nil {
		return snapshot.Data{}, err
	}
	trips, err := r.queryTrips(ctx, tx, since)
	if err != nil {
		return snapshot.Data{}, err
	}
	details, err := r.queryTimeDetails(ctx, tx, since)
	if err != nil {
		return snapshot.Data{}, err
	}
	if err := tx.Commit(); err != nil {
		return snapshot.Data{}, fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}

	r.logger.Debug("Fetched snapshot from postgres",
		zap.Int("jobs", len(jobs)),
		zap.Int("trips", len(trips)),
		zap.Int("time_details", len(details)),
		zap.String("since", since),
	)

	return snapshot.Data{Jobs: jobs, Trips: trips, TimeDetails: details}, nil
}

func (r *PostgresSource) queryJobs(ctx context.Context, tx *sql.Tx) ([]models.LoadingJob, error) {
	query := `
		SELECT
			id, product, plate, driver, carrier, destination, client, status,
			queued_at, entry_at, loaded_at, exit_at,
			bales, weight_kg, invoice_number, notes
		FROM loading_jobs
		ORDER BY created_at, id
	`
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query loading jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.LoadingJob
	for rows.Next() {
		var (
			j                                                models.LoadingJob
			product, status                                  string
			driver, carrier, destination, client, inv, notes sql.NullString
			entryAt, loadedAt, exitAt                        sql.NullTime
			bales                                            sql.NullInt64
			weight                                           sql.NullFloat64
		)
		if err := rows.Scan(
			&j.ID, &product, &j.Plate, &driver, &carrier, &destination, &client, &status,
			&j.QueuedAt, &entryAt, &loadedAt, &exitAt,
			&bales, &weight, &inv, &notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan loading job: %w", err)
		}

		j.Product = models.ParseProduct(product)
		j.Status = models.JobStatus(status)
		j.Driver = driver.String
		j.Carrier = carrier.String
		j.Destination = destination.String
		j.Client = client.String
		j.InvoiceNumber = inv.String
		j.Notes = notes.String
		j.EntryAt = nullTime(entryAt)
		j.LoadedAt = nullTime(loadedAt)
		j.ExitAt = nullTime(exitAt)
		if bales.Valid {
			b := int(bales.Int64)
			j.Bales = &b
		}
		if weight.Valid {
			w := weight.Float64
			j.WeightKg = &w
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read loading jobs: %w", err)
	}
	return normalizeJobs(jobs, r.logger), nil
}

func (r *PostgresSource) queryTrips(ctx context.Context, tx *sql.Tx, since string) ([]models.VehicleTrip, error) {
	query := `
		SELECT
			id, plate, driver, farm, plot,
			to_char(trip_date, 'YYYY-MM-DD'),
			entry_time, exit_time, roll_count, halt_flag
		FROM vehicle_trips
		WHERE trip_date >= $1::date
		ORDER BY created_at, id
	`
	rows, err := tx.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicle trips: %w", err)
	}
	defer rows.Close()

	var trips []models.VehicleTrip
	for rows.Next() {
		var (
			t                               models.VehicleTrip
			driver, farm, plot, entry, exit sql.NullString
			rolls                           sql.NullInt64
			halt                            sql.NullBool
		)
		if err := rows.Scan(&t.ID, &t.Plate, &driver, &farm, &plot, &t.Date, &entry, &exit, &rolls, &halt); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle trip: %w", err)
		}
		t.Plate = models.NormalizePlate(t.Plate)
		t.Driver = driver.String
		t.Farm = farm.String
		t.Plot = plot.String
		t.EntryTime = entry.String
		t.ExitTime = exit.String
		t.RollCount = int(rolls.Int64)
		t.HaltFlag = halt.Bool
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vehicle trips: %w", err)
	}
	return trips, nil
}

func (r *PostgresSource) queryTimeDetails(ctx context.Context, tx *sql.Tx, since string) ([]models.TripTimeDetail, error) {
	query := `
		SELECT plate, to_char(trip_date, 'YYYY-MM-DD'), entry_time, field_minutes, unit_minutes
		FROM trip_time_details
		WHERE trip_date >= $1::date
	`
	rows, err := tx.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query trip time details: %w", err)
	}
	defer rows.Close()

	var details []models.TripTimeDetail
	for rows.Next() {
		var d models.TripTimeDetail
		if err := rows.Scan(&d.Plate, &d.Date, &d.Time, &d.FieldMinutes, &d.UnitMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan trip time detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trip time details: %w", err)
	}
	return details, nil
}

// SaveJob writes the lifecycle fields of job
func (r *PostgresSource) SaveJob(ctx context.Context, job models.LoadingJob) error {
	query := `
		UPDATE loading_jobs
		SET status = $2,
			entry_at = $3,
			loaded_at = $4,
			exit_at = $5,
			bales = $6,
			weight_kg = $7,
			invoice_number = $8,
			updated_at = NOW()
		WHERE id = $1
	`
	var bales sql.NullInt64
	if job.Bales != nil {
		bales = sql.NullInt64{Int64: int64(*job.Bales), Valid: true}
	}
	var weight sql.NullFloat64
	if job.WeightKg != nil {
		weight = sql.NullFloat64{Float64: *job.WeightKg, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query,
		job.ID,
		string(job.Status),
		toNullTime(job.EntryAt),
		toNullTime(job.LoadedAt),
		toNullTime(job.ExitAt),
		bales,
		weight,
		sql.NullString{String: job.InvoiceNumber, Valid: job.InvoiceNumber != ""},
	)
	if err != nil {
		return fmt.Errorf("failed to update loading job %s: %w", job.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}

	r.logger.Info("Saved loading job",
		zap.String("job_id", job.ID),
		zap.String("status", string(job.Status)),
	)
	return nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
