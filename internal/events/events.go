// Package events defines the repository's change notifications and the
// Publisher interface they flow through. The abstraction keeps the service
// independent of a specific broker.
package events

import (
	"context"
	"time"
)

// Event kinds emitted by the repository.
const (
	KindArtifactSaved     = "artifact.saved"
	KindArtifactValidated = "artifact.validated"
)

// Event is one repository change notification.
type Event struct {
	Kind         string    `json:"kind"`
	Domain       string    `json:"domain"`
	ScraperType  string    `json:"scraper_type,omitempty"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	Verdict      string    `json:"verdict,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher delivers events to interested consumers.
type Publisher interface {
	// Publish sends the event and returns the broker-assigned message ID.
	Publish(ctx context.Context, event Event) (string, error)

	// Close cleans up any client connections and resources.
	Close() error
}

// NoOpPublisher discards events. Used when no broker is configured.
type NoOpPublisher struct{}

// Publish for NoOpPublisher does nothing.
func (NoOpPublisher) Publish(_ context.Context, _ Event) (string, error) { return "", nil }

// Close for NoOpPublisher does nothing.
func (NoOpPublisher) Close() error { return nil }
