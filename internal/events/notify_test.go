package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autoscraper/scrapervault/internal/events"
	eventsmem "github.com/autoscraper/scrapervault/internal/events/memory"
	"github.com/autoscraper/scrapervault/internal/repository"
	storagemem "github.com/autoscraper/scrapervault/internal/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) (string, error) {
	return "", errors.New("broker unavailable")
}

func (failingPublisher) Close() error { return nil }

func TestNotifyingWriterPublishesSaves(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)
	published := eventsmem.New()
	writer := repository.NewWriter(storagemem.New(), fixedClock{now: now}, zap.NewNop())
	notifying := events.NewNotifyingWriter(writer, published, fixedClock{now: now}, zap.NewNop())

	saved, err := notifying.SaveArtifact(ctx, repository.SaveRequest{
		Code:      "def scrape(url):\n    return {}\n",
		URL:       "https://example.org/items",
		Selectors: repository.NewSelectorMap("title", "h1"),
		Type:      repository.TypeList,
	})
	require.NoError(t, err)

	recorded := published.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, events.KindArtifactSaved, recorded[0].Kind)
	assert.Equal(t, "example.org", recorded[0].Domain)
	assert.Equal(t, "list", recorded[0].ScraperType)
	assert.Equal(t, saved.ArtifactPath, recorded[0].ArtifactPath)
	assert.Equal(t, now, recorded[0].OccurredAt)
}

func TestNotifyingWriterSurvivesPublishFailure(t *testing.T) {
	ctx := context.Background()
	clock := fixedClock{now: time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)}
	writer := repository.NewWriter(storagemem.New(), clock, zap.NewNop())
	notifying := events.NewNotifyingWriter(writer, failingPublisher{}, clock, zap.NewNop())

	saved, err := notifying.SaveArtifact(ctx, repository.SaveRequest{
		Code:      "def scrape(url):\n    return {}\n",
		URL:       "https://example.org/items/1",
		Selectors: repository.NewSelectorMap("title", "h1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "example.org", saved.Domain)
}

func TestNotifyingWriterPropagatesSaveError(t *testing.T) {
	clock := fixedClock{now: time.Now()}
	published := eventsmem.New()
	writer := repository.NewWriter(storagemem.New(), clock, zap.NewNop())
	notifying := events.NewNotifyingWriter(writer, published, clock, zap.NewNop())

	_, err := notifying.SaveArtifact(context.Background(), repository.SaveRequest{
		URL: "https://example.org/items",
	})
	require.Error(t, err)
	assert.Empty(t, published.Events())
}
