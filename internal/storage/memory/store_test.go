package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoscraper/scrapervault/internal/storage"
	"github.com/autoscraper/scrapervault/internal/storage/memory"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "scrapers/a.py", []byte("code")))

	got, err := store.Read(ctx, "scrapers/a.py")
	require.NoError(t, err)
	assert.Equal(t, []byte("code"), got)

	ok, err := store.Exists(ctx, "scrapers/a.py")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestReadAbsent(t *testing.T) {
	t.Parallel()
	_, err := memory.New().Read(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestReadReturnsCopy(t *testing.T) {
	t.Parallel()
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "p", []byte("abc")))
	got, err := store.Read(ctx, "p")
	require.NoError(t, err)
	got[0] = 'x'

	again, err := store.Read(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestListPrefix(t *testing.T) {
	t.Parallel()
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "metadata/a.json", []byte("{}")))
	require.NoError(t, store.Save(ctx, "scrapers/a.py", []byte("code")))

	paths, err := store.List(ctx, "metadata/")
	require.NoError(t, err)
	assert.Equal(t, []string{"metadata/a.json"}, paths)
}
