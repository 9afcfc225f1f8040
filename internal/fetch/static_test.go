package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticFetch(t *testing.T) {
	var gotAgent, gotTrace string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		gotTrace = r.Header.Get("X-Trace")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><h1>Recipe</h1></body></html>"))
	}))
	defer srv.Close()

	f := NewStatic(StaticConfig{UserAgent: "scrapervault-test", Timeout: 5 * time.Second})
	resp, err := f.Fetch(context.Background(), Request{
		URL:     srv.URL + "/recipes/1",
		Headers: http.Header{"X-Trace": {"yes"}},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "<h1>Recipe</h1>")
	assert.Equal(t, "text/html", resp.Headers.Get("Content-Type"))
	assert.False(t, resp.Rendered)
	assert.Equal(t, "scrapervault-test", gotAgent)
	assert.Equal(t, "yes", gotTrace)
}

func TestStaticFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewStatic(StaticConfig{})
	_, err := f.Fetch(context.Background(), Request{URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), srv.URL)
}

func TestStaticFetchCanceledContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewStatic(StaticConfig{})
	_, err := f.Fetch(ctx, Request{URL: srv.URL})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
