package validate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autoscraper/scrapervault/internal/events"
	eventsmem "github.com/autoscraper/scrapervault/internal/events/memory"
	"github.com/autoscraper/scrapervault/internal/history"
	"github.com/autoscraper/scrapervault/internal/metrics"
	"github.com/autoscraper/scrapervault/internal/repository"
	"github.com/autoscraper/scrapervault/internal/sandbox"
	"github.com/autoscraper/scrapervault/internal/storage/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type stubExecutor struct {
	verdict sandbox.Verdict
	lastURL string
}

func (s *stubExecutor) Execute(_ context.Context, _ string, url string) sandbox.Verdict {
	s.lastURL = url
	return s.verdict
}

type recordingHistory struct {
	history.NoOpStore
	mu   sync.Mutex
	runs []history.Run
}

func (r *recordingHistory) RecordRun(_ context.Context, run history.Run) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return "run-1", nil
}

func newValidator(t *testing.T, exec Executor, hist history.Store, pub events.Publisher) (*Validator, *repository.Writer) {
	t.Helper()
	metrics.Init()

	store := memory.New()
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	writer := repository.NewWriter(store, clock, zap.NewNop())
	resolver := repository.NewResolver(store, zap.NewNop())
	return New(resolver, writer, exec, hist, pub, clock, zap.NewNop()), writer
}

func seed(t *testing.T, writer *repository.Writer) {
	t.Helper()
	_, err := writer.SaveArtifact(context.Background(), repository.SaveRequest{
		Code:      "def scrape(url):\n    return {\"title\": None}\n",
		URL:       "https://example.com/recipes/1",
		Selectors: repository.NewSelectorMap("title", "h1"),
	})
	require.NoError(t, err)
}

func TestValidateSuccess(t *testing.T) {
	exec := &stubExecutor{verdict: sandbox.Verdict{
		Success:  true,
		Stdout:   "{\n  \"title\": \"Carbonara\"\n}\n",
		Duration: 800 * time.Millisecond,
	}}
	hist := &recordingHistory{}
	pub := eventsmem.New()
	v, writer := newValidator(t, exec, hist, pub)
	seed(t, writer)

	result, err := v.Validate(context.Background(), "example.com", "https://example.com/recipes/2")
	require.NoError(t, err)

	assert.True(t, result.Verdict.Success)
	assert.Equal(t, "https://example.com/recipes/2", result.URL)
	assert.Equal(t, "Carbonara", result.Fields["title"])

	require.Len(t, hist.runs, 1)
	assert.Equal(t, "success", hist.runs[0].Verdict)
	assert.Equal(t, "example.com", hist.runs[0].Domain)

	got := pub.Events()
	require.Len(t, got, 1)
	assert.Equal(t, events.KindArtifactValidated, got[0].Kind)
}

func TestValidateFallsBackToExampleURL(t *testing.T) {
	exec := &stubExecutor{verdict: sandbox.Verdict{Success: true, Stdout: "{}"}}
	v, writer := newValidator(t, exec, &recordingHistory{}, eventsmem.New())
	seed(t, writer)

	result, err := v.Validate(context.Background(), "example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/recipes/1", result.URL)
	assert.Equal(t, "https://example.com/recipes/1", exec.lastURL)
}

func TestValidateFailureRecordsButDoesNotTouch(t *testing.T) {
	exec := &stubExecutor{verdict: sandbox.Verdict{
		Success:   false,
		ErrorKind: sandbox.ErrorRuntime,
		Stdout:    "EXECUTION_ERROR: selector drift\n",
		Duration:  time.Second,
	}}
	hist := &recordingHistory{}
	pub := eventsmem.New()
	v, writer := newValidator(t, exec, hist, pub)
	seed(t, writer)

	result, err := v.Validate(context.Background(), "example.com", "https://example.com/recipes/1")
	require.NoError(t, err)
	assert.False(t, result.Verdict.Success)
	assert.Nil(t, result.Fields)

	require.Len(t, hist.runs, 1)
	assert.Equal(t, "runtime_failure", hist.runs[0].Verdict)
	assert.Empty(t, pub.Events())
}

func TestValidateUnknownDomain(t *testing.T) {
	v, _ := newValidator(t, &stubExecutor{}, &recordingHistory{}, eventsmem.New())

	_, err := v.Validate(context.Background(), "nowhere.example", "")
	require.Error(t, err)
	assert.True(t, repository.IsNotFound(err))
}
