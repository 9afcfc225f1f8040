package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/autoscraper/scrapervault/internal/repository"
)

// ArtifactWriter is the save surface the notifier decorates.
type ArtifactWriter interface {
	SaveArtifact(ctx context.Context, req repository.SaveRequest) (repository.SavedArtifact, error)
}

// NotifyingWriter wraps an artifact writer and publishes an artifact.saved
// event after every successful save. Publish failures are logged, never
// surfaced: persistence already succeeded.
type NotifyingWriter struct {
	inner     ArtifactWriter
	publisher Publisher
	clock     repository.Clock
	logger    *zap.Logger
}

// NewNotifyingWriter constructs the decorator.
func NewNotifyingWriter(inner ArtifactWriter, publisher Publisher, clock repository.Clock, logger *zap.Logger) *NotifyingWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifyingWriter{
		inner:     inner,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// SaveArtifact persists through the wrapped writer, then announces the save.
func (w *NotifyingWriter) SaveArtifact(ctx context.Context, req repository.SaveRequest) (repository.SavedArtifact, error) {
	saved, err := w.inner.SaveArtifact(ctx, req)
	if err != nil {
		return saved, err
	}

	scraperType := req.Type
	if scraperType == "" {
		scraperType = repository.TypeSingle
	}
	event := Event{
		Kind:         KindArtifactSaved,
		Domain:       saved.Domain,
		ScraperType:  string(scraperType),
		ArtifactPath: saved.ArtifactPath,
		OccurredAt:   w.clock.Now().UTC(),
	}
	if _, perr := w.publisher.Publish(ctx, event); perr != nil {
		w.logger.Warn("artifact saved event not published",
			zap.String("domain", saved.Domain),
			zap.Error(perr))
	}
	return saved, nil
}
