package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoscraper/scrapervault/internal/config"
	"github.com/autoscraper/scrapervault/internal/repository"
)

func localConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Storage: config.StorageConfig{LocalDir: filepath.Join(t.TempDir(), "repo")},
		Sandbox: config.SandboxConfig{Interpreter: "python3", TimeoutSeconds: 30},
		Fetch: config.FetchConfig{
			UserAgent:         "scrapervault-test",
			NavTimeoutSec:     10,
			HeadlessPromotion: false,
		},
	}
}

func TestNewLocalOnly(t *testing.T) {
	a, err := New(context.Background(), localConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Writer())
	assert.NotNil(t, a.Resolver())
	assert.NotNil(t, a.Runner())
	assert.NotNil(t, a.Fetcher())
	assert.NotNil(t, a.Validator())
	assert.False(t, a.Store().RemoteConfigured())
}

func TestAppRoundTrip(t *testing.T) {
	a, err := New(context.Background(), localConfig(t))
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	saved, err := a.Writer().SaveArtifact(ctx, repository.SaveRequest{
		Code:      "def scrape(url):\n    return {\"title\": None}\n",
		URL:       "https://example.com/recipes/1",
		Selectors: repository.NewSelectorMap("title", "h1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "example.com", saved.Domain)

	artifact, err := a.Resolver().GetArtifactForURL(ctx, "https://example.com/recipes/99")
	require.NoError(t, err)
	assert.Contains(t, artifact.Code, "def scrape")
}

func TestAppServerHandler(t *testing.T) {
	a, err := New(context.Background(), localConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Server().Handler())
}
