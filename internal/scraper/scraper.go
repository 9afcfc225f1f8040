// Package scraper models dynamic code loading as an explicit capability: a
// stored artifact becomes a Scraper whose single operation runs the code in
// the execution sandbox. The untrusted source never executes inside this
// process.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/autoscraper/scrapervault/internal/repository"
	"github.com/autoscraper/scrapervault/internal/sandbox"
)

// Fields is the mapping a scraper run produces.
type Fields map[string]any

// URLs extracts the "urls" sequence from a list-scraper result.
func (f Fields) URLs() []string {
	raw, ok := f["urls"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	urls := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			urls = append(urls, s)
		}
	}
	return urls
}

// Scraper is the loaded-artifact capability: one operation mapping a URL to
// extracted fields.
type Scraper interface {
	Scrape(ctx context.Context, url string) (Fields, error)
}

// Executor runs candidate code in isolation. Satisfied by *sandbox.Runner.
type Executor interface {
	Execute(ctx context.Context, code, url string) sandbox.Verdict
}

// Loader instantiates Scrapers from stored artifacts.
type Loader struct {
	exec   Executor
	logger *zap.Logger
}

// NewLoader constructs a Loader backed by the given executor.
func NewLoader(exec Executor, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		exec:   exec,
		logger: logger,
	}
}

// Load wraps an artifact's code into a Scraper. Loading performs no
// execution; the code runs only when Scrape is called.
func (l *Loader) Load(artifact *repository.Artifact) Scraper {
	return &sandboxScraper{
		domain: artifact.Domain,
		code:   artifact.Code,
		exec:   l.exec,
		logger: l.logger,
	}
}

type sandboxScraper struct {
	domain string
	code   string
	exec   Executor
	logger *zap.Logger
}

// Scrape executes the artifact against url and decodes the serialized
// field mapping from the sandbox's stdout.
func (s *sandboxScraper) Scrape(ctx context.Context, url string) (Fields, error) {
	verdict := s.exec.Execute(ctx, s.code, url)
	if !verdict.Success {
		return nil, fmt.Errorf("scraper for %s failed (%s): %s",
			s.domain, verdict.ErrorKind, diagnostic(verdict))
	}

	var fields Fields
	if err := json.Unmarshal([]byte(verdict.Stdout), &fields); err != nil {
		return nil, fmt.Errorf("scraper for %s produced unparseable output: %w", s.domain, err)
	}
	return fields, nil
}

// diagnostic picks the most useful line of captured output for an error
// message.
func diagnostic(v sandbox.Verdict) string {
	for _, out := range []string{v.Stdout, v.Stderr} {
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				return line
			}
		}
	}
	return "no output"
}
