// Package snapshot holds the current full pull of jobs, trips and time details.
// A snapshot is never mutated after it is published; refreshes replace it whole.
package snapshot

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"guarita-loadqueue/internal/models"

	"github.com/google/uuid"
)

// ErrSnapshotUnavailable no refresh has succeeded yet
var ErrSnapshotUnavailable = errors.New("snapshot unavailable")

// Data one full pull from the external store
type Data struct {
	Jobs        []models.LoadingJob     `json:"jobs"`
	Trips       []models.VehicleTrip    `json:"trips"`
	TimeDetails []models.TripTimeDetail `json:"time_details"`
}

// Snapshot published, read-only Data
type Snapshot struct {
	ID       string    `json:"id"`
	Tick     uint64    `json:"tick"`
	PulledAt time.Time `json:"pulled_at"`
	Data
}

// StaleSnapshotError the last refresh failed; the snapshot being served is older
type StaleSnapshotError struct {
	Tick      uint64
	Since     time.Time
	Failures  int
	LastError error
}

func (e *StaleSnapshotError) Error() string {
	return fmt.Sprintf("snapshot %d stale since %s after %d failed refresh(es): %v",
		e.Tick, e.Since.Format(time.RFC3339), e.Failures, e.LastError)
}

func (e *StaleSnapshotError) Unwrap() error {
	return e.LastError
}

// Status refresh health as seen by consumers
type Status struct {
	SnapshotID          string    `json:"snapshot_id,omitempty"`
	Tick                uint64    `json:"tick"`
	Stale               bool      `json:"stale"`
	LastError           string    `json:"last_error,omitempty"`
	LastAttempt         time.Time `json:"last_attempt"`
	LastSuccess         time.Time `json:"last_success"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// Store publishes snapshots atomically and tracks refresh health
type Store struct {
	current atomic.Pointer[Snapshot]

	mu      sync.RWMutex
	tick    uint64
	status  Status
	lastErr error
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Current snapshot being served
func (s *Store) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrSnapshotUnavailable
	}
	return snap, nil
}

// Swap publishes data as the next snapshot and clears the stale state
func (s *Store) Swap(data Data, pulledAt time.Time) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	snap := &Snapshot{
		ID:       uuid.NewString(),
		Tick:     s.tick,
		PulledAt: pulledAt,
		Data:     data,
	}
	s.current.Store(snap)

	s.lastErr = nil
	s.status = Status{
		SnapshotID:  snap.ID,
		Tick:        snap.Tick,
		LastAttempt: pulledAt,
		LastSuccess: pulledAt,
	}
	return snap
}

// MarkStale records a failed refresh; the current snapshot stays in place
func (s *Store) MarkStale(err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = err
	s.status.Stale = true
	s.status.LastAttempt = at
	s.status.ConsecutiveFailures++
	if err != nil {
		s.status.LastError = err.Error()
	}
}

// Status current refresh health
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns a *StaleSnapshotError while the last refresh failed, nil otherwise
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.status.Stale {
		return nil
	}
	return &StaleSnapshotError{
		Tick:      s.status.Tick,
		Since:     s.status.LastSuccess,
		Failures:  s.status.ConsecutiveFailures,
		LastError: s.lastErr,
	}
}
