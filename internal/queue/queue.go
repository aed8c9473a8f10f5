// Package queue derives FIFO positions of queued loading jobs per product and
// splits a snapshot into the dashboard buckets.
package queue

import (
	"fmt"
	"sort"
	"time"

	"guarita-loadqueue/internal/lifecycle"
	"guarita-loadqueue/internal/models"
)

// Entry a queued job with its position inside its product line
type Entry struct {
	Job      models.LoadingJob `json:"job"`
	Position int               `json:"position"`
	Total    int               `json:"total"`
	Label    string            `json:"label"`
}

// Buckets jobs split by visibility rule; each list keeps snapshot order
// except Queued, which is ordered by queuedAt.
type Buckets struct {
	Queued         []models.LoadingJob `json:"queued"`
	LoadingCards   []models.LoadingJob `json:"loading_cards"`
	LoadingList    []models.LoadingJob `json:"loading_list"`
	CompletedToday []models.LoadingJob `json:"completed_today"`
}

// Line returns the queued jobs of product in FIFO order.
// Equal queuedAt values keep their order in jobs.
func Line(product models.Product, jobs []models.LoadingJob) []models.LoadingJob {
	var line []models.LoadingJob
	for _, j := range jobs {
		if lifecycle.IsQueued(j) && j.Product.Equal(product) {
			line = append(line, j)
		}
	}
	sortFIFO(line)
	return line
}

// Position returns the 1-based FIFO position of job among the queued jobs of
// the same product, and the size of that line. A job not found in allQueued
// yields position 0.
func Position(job models.LoadingJob, allQueued []models.LoadingJob) (int, int) {
	line := Line(job.Product, allQueued)
	for i, j := range line {
		if j.ID == job.ID {
			return i + 1, len(line)
		}
	}
	return 0, len(line)
}

// Lines computes entries for every queued job, grouped into product lines.
// A non-nil product restricts the result to that line.
func Lines(jobs []models.LoadingJob, product *models.Product) []Entry {
	groups := make(map[string][]models.LoadingJob)
	var order []string
	for _, j := range jobs {
		if !lifecycle.IsQueued(j) {
			continue
		}
		if product != nil && !j.Product.Equal(*product) {
			continue
		}
		key := j.Product.Key()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], j)
	}

	var out []Entry
	for _, key := range order {
		line := groups[key]
		sortFIFO(line)
		for i, j := range line {
			out = append(out, Entry{
				Job:      j,
				Position: i + 1,
				Total:    len(line),
				Label:    Label(i + 1),
			})
		}
	}
	return out
}

// Classify splits jobs into the visibility buckets for the calendar day of now
func Classify(jobs []models.LoadingJob, now time.Time) Buckets {
	var b Buckets
	for _, j := range jobs {
		if lifecycle.IsQueued(j) {
			b.Queued = append(b.Queued, j)
		}
		if lifecycle.InLoadingCard(j) {
			b.LoadingCards = append(b.LoadingCards, j)
		}
		if lifecycle.InLoadingList(j, now) {
			b.LoadingList = append(b.LoadingList, j)
		}
		if lifecycle.InCompletedToday(j, now) {
			b.CompletedToday = append(b.CompletedToday, j)
		}
	}
	sortFIFO(b.Queued)
	return b
}

// Label display text for a queue position; only the first two positions get a name
func Label(position int) string {
	switch {
	case position <= 0:
		return ""
	case position == 1:
		return "first in line"
	case position == 2:
		return "next up"
	default:
		return fmt.Sprintf("%d%s in queue", position, ordinalSuffix(position))
	}
}

func ordinalSuffix(n int) string {
	if n%100 >= 11 && n%100 <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

func sortFIFO(jobs []models.LoadingJob) {
	sort.SliceStable(jobs, func(a, b int) bool {
		return jobs[a].QueuedAt.Before(jobs[b].QueuedAt)
	})
}
