package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autoscraper/scrapervault/internal/repository"
	"github.com/autoscraper/scrapervault/internal/storage/memory"
)

// fakeClock hands out a fixed, advanceable time.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

const sampleCode = "def scrape(url):\n    return {\"title\": None}\n"

func TestSaveArtifact(t *testing.T) {
	ctx := context.Background()

	t.Run("PersistsCodeAndMetadata", func(t *testing.T) {
		store := memory.New()
		writer := repository.NewWriter(store, newFakeClock(), zap.NewNop())

		saved, err := writer.SaveArtifact(ctx, repository.SaveRequest{
			Code:      sampleCode,
			URL:       "https://example.org/articles/1",
			Selectors: repository.NewSelectorMap("title", "h1"),
			SiteName:  "Example News",
		})
		require.NoError(t, err)
		assert.Equal(t, "example.org", saved.Domain)
		assert.Equal(t, "scrapers/example_org.py", saved.ArtifactPath)
		assert.Equal(t, "metadata/example_org.json", saved.MetadataPath)

		code, err := store.Read(ctx, saved.ArtifactPath)
		require.NoError(t, err)
		assert.Equal(t, []byte(sampleCode), code, "code must round-trip byte-for-byte")

		raw, err := store.Read(ctx, saved.MetadataPath)
		require.NoError(t, err)
		meta, err := repository.DecodeMetadata(raw)
		require.NoError(t, err)
		assert.Equal(t, "example.org", meta.Domain)
		assert.Equal(t, "Example News", meta.SiteName)
		assert.Equal(t, repository.TypeSingle, meta.ScraperType)
		assert.Equal(t, "https://example.org/articles/1", meta.ExampleURL)
		assert.Equal(t, []string{"title"}, meta.Fields)
		assert.Equal(t, repository.SchemaVersion, meta.Version)
		assert.True(t, meta.MatchesURL(meta.ExampleURL), "url_pattern must match the example url")
	})

	t.Run("MetadataFieldOrderRoundTrips", func(t *testing.T) {
		store := memory.New()
		writer := repository.NewWriter(store, newFakeClock(), zap.NewNop())

		selectors := repository.NewSelectorMap(
			"headline", "h1",
			"author", ".byline",
			"body", "article .text",
		)
		saved, err := writer.SaveArtifact(ctx, repository.SaveRequest{
			Code:      sampleCode,
			URL:       "https://example.org/a",
			Selectors: selectors,
		})
		require.NoError(t, err)

		raw, err := store.Read(ctx, saved.MetadataPath)
		require.NoError(t, err)
		meta, err := repository.DecodeMetadata(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"headline", "author", "body"}, meta.Fields)
		assert.Equal(t, []string{"headline", "author", "body"}, meta.Selectors.Fields())
	})

	t.Run("PipelineHalvesDoNotCollide", func(t *testing.T) {
		store := memory.New()
		writer := repository.NewWriter(store, newFakeClock(), zap.NewNop())

		listSaved, err := writer.SaveArtifact(ctx, repository.SaveRequest{
			Code:      "def scrape(url):\n    return {\"urls\": []}\n",
			URL:       "https://example.org/news",
			Selectors: repository.NewSelectorMap("urls", "a.article"),
			Type:      repository.TypeList,
		})
		require.NoError(t, err)

		contentSaved, err := writer.SaveArtifact(ctx, repository.SaveRequest{
			Code:      sampleCode,
			URL:       "https://example.org/news/1",
			Selectors: repository.NewSelectorMap("title", "h1"),
			Type:      repository.TypeContent,
		})
		require.NoError(t, err)

		assert.Equal(t, "scrapers/example_org_list.py", listSaved.ArtifactPath)
		assert.Equal(t, "scrapers/example_org_content.py", contentSaved.ArtifactPath)
		assert.Equal(t, 4, store.Len())
	})

	t.Run("DefaultsSiteNameToDomain", func(t *testing.T) {
		store := memory.New()
		writer := repository.NewWriter(store, newFakeClock(), zap.NewNop())

		saved, err := writer.SaveArtifact(ctx, repository.SaveRequest{
			Code: sampleCode,
			URL:  "https://example.org/a",
		})
		require.NoError(t, err)

		raw, err := store.Read(ctx, saved.MetadataPath)
		require.NoError(t, err)
		meta, err := repository.DecodeMetadata(raw)
		require.NoError(t, err)
		assert.Equal(t, "example.org", meta.SiteName)
	})

	t.Run("RejectsInvalidInput", func(t *testing.T) {
		writer := repository.NewWriter(memory.New(), newFakeClock(), zap.NewNop())

		_, err := writer.SaveArtifact(ctx, repository.SaveRequest{URL: "https://example.org/a"})
		assert.Error(t, err, "empty code")

		_, err = writer.SaveArtifact(ctx, repository.SaveRequest{Code: sampleCode, URL: "bogus"})
		assert.Error(t, err, "hostless url")

		_, err = writer.SaveArtifact(ctx, repository.SaveRequest{
			Code: sampleCode, URL: "https://example.org/a", Type: repository.ScraperType("weird"),
		})
		assert.Error(t, err, "unknown scraper type")
	})
}

func TestTouchValidated(t *testing.T) {
	ctx := context.Background()

	t.Run("UpdatesOnlyLastValidated", func(t *testing.T) {
		store := memory.New()
		clock := newFakeClock()
		writer := repository.NewWriter(store, clock, zap.NewNop())

		saved, err := writer.SaveArtifact(ctx, repository.SaveRequest{
			Code:      sampleCode,
			URL:       "https://example.org/a",
			Selectors: repository.NewSelectorMap("title", "h1"),
		})
		require.NoError(t, err)

		raw, err := store.Read(ctx, saved.MetadataPath)
		require.NoError(t, err)
		before, err := repository.DecodeMetadata(raw)
		require.NoError(t, err)

		clock.Advance(2 * time.Hour)
		require.NoError(t, writer.TouchValidated(ctx, "example.org"))
		clock.Advance(2 * time.Hour)
		require.NoError(t, writer.TouchValidated(ctx, "example.org"))

		raw, err = store.Read(ctx, saved.MetadataPath)
		require.NoError(t, err)
		after, err := repository.DecodeMetadata(raw)
		require.NoError(t, err)

		assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
		assert.Equal(t, before.Domain, after.Domain)
		assert.Equal(t, before.SiteName, after.SiteName)
		assert.Equal(t, before.URLPattern, after.URLPattern)
		assert.Equal(t, before.Fields, after.Fields)
		assert.Equal(t, before.Version, after.Version)
		assert.True(t, after.LastValidated.After(before.LastValidated))
		assert.True(t, clock.Now().Equal(after.LastValidated))
	})

	t.Run("MissingMetadataIsNotFatal", func(t *testing.T) {
		writer := repository.NewWriter(memory.New(), newFakeClock(), zap.NewNop())
		assert.NoError(t, writer.TouchValidated(ctx, "unknown.example"))
	})
}
