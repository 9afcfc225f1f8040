// Package history records validation runs for auditing. Each sandbox
// execution of a stored artifact produces one row, so operators can see when
// a scraper last worked and how it has been failing.
package history

import (
	"context"
	"time"
)

// Run is one recorded validation attempt.
type Run struct {
	ID          string    `json:"id"`
	Domain      string    `json:"domain"`
	ScraperType string    `json:"scraper_type"`
	URL         string    `json:"url"`
	Verdict     string    `json:"verdict"`
	DurationMS  int64     `json:"duration_ms"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Store persists validation runs.
type Store interface {
	// RecordRun inserts the run and returns its assigned ID.
	RecordRun(ctx context.Context, run Run) (string, error)

	// RecentRuns returns the newest runs for a domain, most recent first.
	RecentRuns(ctx context.Context, domain string, limit int) ([]Run, error)

	// Close releases the underlying connections.
	Close()
}

// NoOpStore discards history. Used when no database is configured.
type NoOpStore struct{}

// RecordRun for NoOpStore does nothing.
func (NoOpStore) RecordRun(_ context.Context, _ Run) (string, error) { return "", nil }

// RecentRuns for NoOpStore returns nothing.
func (NoOpStore) RecentRuns(_ context.Context, _ string, _ int) ([]Run, error) { return nil, nil }

// Close for NoOpStore does nothing.
func (NoOpStore) Close() {}
