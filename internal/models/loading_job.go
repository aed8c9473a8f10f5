package models

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus lifecycle state of a loading job
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusLoading   JobStatus = "loading"
	StatusLoaded    JobStatus = "loaded"
	StatusCompleted JobStatus = "completed"
)

// ParseJobStatus accepts the engine values and the legacy dashboard values (fila, carregando, ...)
func ParseJobStatus(s string) (JobStatus, error) {
	switch foldKey(s) {
	case "queued", "fila":
		return StatusQueued, nil
	case "loading", "carregando":
		return StatusLoading, nil
	case "loaded", "carregado":
		return StatusLoaded, nil
	case "completed", "concluido":
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("unknown job status %q", s)
	}
}

// LoadingJob a truck's request to load a product
type LoadingJob struct {
	ID          string    `json:"id"`
	Product     Product   `json:"product"`
	Plate       string    `json:"plate"`
	Driver      string    `json:"driver"`
	Carrier     string    `json:"carrier"`
	Destination string    `json:"destination"`
	Client      string    `json:"client"`
	Status      JobStatus `json:"status"`

	QueuedAt time.Time  `json:"queued_at"`
	EntryAt  *time.Time `json:"entry_at,omitempty"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
	ExitAt   *time.Time `json:"exit_at,omitempty"`

	Bales    *int     `json:"bales,omitempty"`
	WeightKg *float64 `json:"weight_kg,omitempty"`

	InvoiceNumber string `json:"invoice_number,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// Quantity authoritative quantity of a job
type Quantity struct {
	Unit  QuantityUnit `json:"unit"`
	Value float64      `json:"value"`
	Set   bool         `json:"set"`
}

// Quantity returns the field that counts for the job's product.
// Other products fall back to bales when no weight was recorded.
func (j LoadingJob) Quantity() Quantity {
	unit := j.Product.QuantityUnit()
	if !j.Product.IsCore() && j.WeightKg == nil && j.Bales != nil {
		unit = UnitBales
	}

	switch unit {
	case UnitBales:
		if j.Bales != nil {
			return Quantity{Unit: UnitBales, Value: float64(*j.Bales), Set: true}
		}
	default:
		if j.WeightKg != nil {
			return Quantity{Unit: UnitWeightKg, Value: *j.WeightKg, Set: true}
		}
	}
	return Quantity{Unit: unit}
}

// Clone deep-copies the pointer fields so transitions never alias the snapshot
func (j LoadingJob) Clone() LoadingJob {
	out := j
	out.EntryAt = cloneTime(j.EntryAt)
	out.LoadedAt = cloneTime(j.LoadedAt)
	out.ExitAt = cloneTime(j.ExitAt)
	if j.Bales != nil {
		b := *j.Bales
		out.Bales = &b
	}
	if j.WeightKg != nil {
		w := *j.WeightKg
		out.WeightKg = &w
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// NormalizePlate upper-cases and strips spaces and hyphens ("abc-1234" -> "ABC1234")
func NormalizePlate(plate string) string {
	var b strings.Builder
	b.Grow(len(plate))
	for _, r := range strings.ToUpper(plate) {
		if r == ' ' || r == '-' || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
