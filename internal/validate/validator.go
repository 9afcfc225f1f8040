// Package validate runs stored scrapers against live URLs and records the
// outcome. It is the read-modify cycle that keeps last_validated honest.
package validate

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/autoscraper/scrapervault/internal/events"
	"github.com/autoscraper/scrapervault/internal/history"
	"github.com/autoscraper/scrapervault/internal/metrics"
	"github.com/autoscraper/scrapervault/internal/repository"
	"github.com/autoscraper/scrapervault/internal/sandbox"
	"github.com/autoscraper/scrapervault/internal/scraper"
)

// Executor runs candidate code in isolation.
type Executor interface {
	Execute(ctx context.Context, code, url string) sandbox.Verdict
}

// Result is the outcome of one validation.
type Result struct {
	Domain  string          `json:"domain"`
	URL     string          `json:"url"`
	Verdict sandbox.Verdict `json:"verdict"`
	Fields  scraper.Fields  `json:"fields,omitempty"`
}

// Validator executes stored artifacts and persists the audit trail.
type Validator struct {
	resolver  *repository.Resolver
	writer    *repository.Writer
	executor  Executor
	store     history.Store
	publisher events.Publisher
	clock     repository.Clock
	logger    *zap.Logger
}

// New wires a Validator. store and publisher may be the no-op
// implementations.
func New(
	resolver *repository.Resolver,
	writer *repository.Writer,
	executor Executor,
	store history.Store,
	publisher events.Publisher,
	clock repository.Clock,
	logger *zap.Logger,
) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		resolver:  resolver,
		writer:    writer,
		executor:  executor,
		store:     store,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// Validate runs the stored scraper for domain against url. An empty url
// falls back to the example URL recorded in metadata. On success the
// metadata's last_validated timestamp is bumped and an event published.
// History or event failures are logged, never fatal: the verdict is the
// product here.
func (v *Validator) Validate(ctx context.Context, domain, url string) (Result, error) {
	artifact, err := v.resolver.GetArtifact(ctx, domain)
	if err != nil {
		return Result{}, err
	}
	meta, err := v.resolver.GetMetadata(ctx, domain)
	if err != nil {
		return Result{}, err
	}
	if url == "" {
		url = meta.ExampleURL
	}
	if url == "" {
		return Result{}, fmt.Errorf("no test URL for %s: none given and metadata has no example", domain)
	}

	verdict := v.executor.Execute(ctx, artifact.Code, url)
	metrics.ObserveValidation(verdictLabel(verdict), verdict.Duration)

	result := Result{
		Domain:  domain,
		URL:     url,
		Verdict: verdict,
	}
	if verdict.Success {
		var fields scraper.Fields
		if err := json.Unmarshal([]byte(verdict.Stdout), &fields); err == nil {
			result.Fields = fields
		}
	}

	v.recordRun(ctx, meta, url, verdict)

	if verdict.Success {
		if err := v.writer.TouchValidated(ctx, domain); err != nil {
			v.logger.Warn("failed to update validation timestamp",
				zap.String("domain", domain),
				zap.Error(err))
		}
		v.publish(ctx, meta, verdict)
	}
	return result, nil
}

func (v *Validator) recordRun(ctx context.Context, meta repository.ScraperMetadata, url string, verdict sandbox.Verdict) {
	_, err := v.store.RecordRun(ctx, history.Run{
		Domain:      meta.Domain,
		ScraperType: string(meta.ScraperType),
		URL:         url,
		Verdict:     verdictLabel(verdict),
		DurationMS:  verdict.Duration.Milliseconds(),
		RecordedAt:  v.clock.Now(),
	})
	if err != nil {
		v.logger.Warn("failed to record validation run",
			zap.String("domain", meta.Domain),
			zap.Error(err))
	}
}

func (v *Validator) publish(ctx context.Context, meta repository.ScraperMetadata, verdict sandbox.Verdict) {
	_, err := v.publisher.Publish(ctx, events.Event{
		Kind:        events.KindArtifactValidated,
		Domain:      meta.Domain,
		ScraperType: string(meta.ScraperType),
		Verdict:     verdictLabel(verdict),
		OccurredAt:  v.clock.Now(),
	})
	if err != nil {
		v.logger.Warn("failed to publish validation event",
			zap.String("domain", meta.Domain),
			zap.Error(err))
	}
}

func verdictLabel(v sandbox.Verdict) string {
	if v.Success {
		return "success"
	}
	return string(v.ErrorKind)
}
