package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/autoscraper/scrapervault/internal/storage"
)

// Artifact is a stored scraper ready for loading: the code text plus the
// key it resolves under.
type Artifact struct {
	Domain string
	Key    string
	Code   string
}

// Pipeline pairs the two halves of a list/content extraction flow.
type Pipeline struct {
	Domain  string
	List    *Artifact
	Content *Artifact
}

// ScraperRef summarizes one half of a pipeline for listings.
type ScraperRef struct {
	ExampleURL string   `json:"example_url"`
	Fields     []string `json:"fields,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

// PipelineSummary is the joined view of a complete pipeline.
type PipelineSummary struct {
	Domain         string     `json:"domain"`
	SiteName       string     `json:"site_name"`
	ListScraper    ScraperRef `json:"list_scraper"`
	ContentScraper ScraperRef `json:"content_scraper"`
}

// Resolver locates stored artifacts by exact domain or URL-pattern
// fallback. Resolution failures (ErrNotFound, ErrIncompletePipeline) are
// the only errors it propagates; corrupt metadata records are skipped with
// a warning during bulk scans.
type Resolver struct {
	store  storage.Store
	logger *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(store storage.Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		store:  store,
		logger: logger,
	}
}

// GetArtifact loads the code blob for a domain. The domain may carry a
// pipeline suffix ("example.org_list"). Fails with ErrNotFound when the
// object is absent from every tier.
func (r *Resolver) GetArtifact(ctx context.Context, domain string) (*Artifact, error) {
	key := DomainKey(domain)
	path := ArtifactPath(key)

	content, err := r.store.Read(ctx, path)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("no scraper for domain %q: %w", domain, ErrNotFound)
		}
		return nil, fmt.Errorf("load scraper for %q: %w", domain, err)
	}

	r.logger.Debug("loaded scraper", zap.String("domain", domain), zap.String("path", path))
	return &Artifact{
		Domain: domain,
		Key:    key,
		Code:   string(content),
	}, nil
}

// GetMetadata loads and parses the metadata record for a domain.
func (r *Resolver) GetMetadata(ctx context.Context, domain string) (ScraperMetadata, error) {
	path := MetadataPath(DomainKey(domain))
	content, err := r.store.Read(ctx, path)
	if err != nil {
		if storage.IsNotFound(err) {
			return ScraperMetadata{}, fmt.Errorf("no metadata for domain %q: %w", domain, ErrNotFound)
		}
		return ScraperMetadata{}, fmt.Errorf("load metadata for %q: %w", domain, err)
	}
	meta, err := DecodeMetadata(content)
	if err != nil {
		return ScraperMetadata{}, fmt.Errorf("metadata for %q: %w", domain, err)
	}
	return meta, nil
}

// GetArtifactForURL resolves a URL to a stored artifact: exact host match
// first, then a pattern scan over every metadata record. Listing order is
// normalized lexicographically so the first-match tie-break is stable
// across backends.
func (r *Resolver) GetArtifactForURL(ctx context.Context, url string) (*Artifact, error) {
	host, err := DomainFromURL(url)
	if err != nil {
		return nil, err
	}

	artifact, err := r.GetArtifact(ctx, host)
	if err == nil {
		return artifact, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	paths, err := r.store.List(ctx, metadataPrefix)
	if err != nil {
		return nil, fmt.Errorf("scan metadata for %q: %w", url, err)
	}

	for _, path := range paths {
		if !IsMetadataObject(path) {
			continue
		}
		meta, ok := r.readMetadataObject(ctx, path)
		if !ok {
			continue
		}
		if meta.MatchesURL(url) {
			r.logger.Info("matched url to scraper by pattern",
				zap.String("url", url), zap.String("domain", meta.Domain))
			return r.GetArtifact(ctx, meta.Domain)
		}
	}

	return nil, fmt.Errorf("no scraper matches url %q: %w", url, ErrNotFound)
}

// GetPipeline loads both halves of a domain's pipeline, all-or-nothing.
// A domain with neither half fails with ErrNotFound; a domain with exactly
// one half fails with ErrIncompletePipeline so callers can report the
// difference.
func (r *Resolver) GetPipeline(ctx context.Context, domain string) (*Pipeline, error) {
	listArtifact, listErr := r.GetArtifact(ctx, domain+"_"+string(TypeList))
	if listErr != nil && !IsNotFound(listErr) {
		return nil, listErr
	}
	contentArtifact, contentErr := r.GetArtifact(ctx, domain+"_"+string(TypeContent))
	if contentErr != nil && !IsNotFound(contentErr) {
		return nil, contentErr
	}
	switch {
	case listErr == nil && contentErr == nil:
		return &Pipeline{
			Domain:  domain,
			List:    listArtifact,
			Content: contentArtifact,
		}, nil
	case listErr != nil && contentErr != nil:
		return nil, fmt.Errorf("no pipeline for domain %q: %w", domain, ErrNotFound)
	default:
		return nil, fmt.Errorf("pipeline for domain %q: %w", domain, ErrIncompletePipeline)
	}
}

// HasPipeline reports whether both pipeline halves exist. It checks the
// artifact paths only; no metadata is parsed.
func (r *Resolver) HasPipeline(ctx context.Context, domain string) (bool, error) {
	key := DomainKey(domain)

	listOK, err := r.store.Exists(ctx, ArtifactPath(key+"_"+string(TypeList)))
	if err != nil {
		return false, fmt.Errorf("check list scraper for %q: %w", domain, err)
	}
	if !listOK {
		return false, nil
	}
	contentOK, err := r.store.Exists(ctx, ArtifactPath(key+"_"+string(TypeContent)))
	if err != nil {
		return false, fmt.Errorf("check content scraper for %q: %w", domain, err)
	}
	return contentOK, nil
}

// ListArtifacts parses every metadata record under the metadata prefix,
// skipping corrupt entries.
func (r *Resolver) ListArtifacts(ctx context.Context) ([]ScraperMetadata, error) {
	paths, err := r.store.List(ctx, metadataPrefix)
	if err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}

	records := make([]ScraperMetadata, 0, len(paths))
	for _, path := range paths {
		if !IsMetadataObject(path) {
			continue
		}
		if meta, ok := r.readMetadataObject(ctx, path); ok {
			records = append(records, meta)
		}
	}
	return records, nil
}

// ListPipelines scans metadata for list-typed records and joins each with
// its content half. A domain contributes at most one summary.
func (r *Resolver) ListPipelines(ctx context.Context) ([]PipelineSummary, error) {
	paths, err := r.store.List(ctx, metadataPrefix)
	if err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}

	seen := make(map[string]struct{})
	summaries := make([]PipelineSummary, 0)
	for _, path := range paths {
		if !IsMetadataObject(path) {
			continue
		}
		meta, ok := r.readMetadataObject(ctx, path)
		if !ok || meta.ScraperType != TypeList || meta.Domain == "" {
			continue
		}
		if _, dup := seen[meta.Domain]; dup {
			continue
		}
		complete, err := r.HasPipeline(ctx, meta.Domain)
		if err != nil || !complete {
			continue
		}
		seen[meta.Domain] = struct{}{}

		summary := PipelineSummary{
			Domain:   meta.Domain,
			SiteName: meta.SiteName,
			ListScraper: ScraperRef{
				ExampleURL: meta.ExampleURL,
				CreatedAt:  formatTimestamp(meta.CreatedAt),
			},
		}
		if contentMeta, err := r.GetMetadata(ctx, meta.Domain+"_"+string(TypeContent)); err == nil {
			summary.ContentScraper = ScraperRef{
				ExampleURL: contentMeta.ExampleURL,
				Fields:     contentMeta.Fields,
				CreatedAt:  formatTimestamp(contentMeta.CreatedAt),
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func (r *Resolver) readMetadataObject(ctx context.Context, path string) (ScraperMetadata, bool) {
	content, err := r.store.Read(ctx, path)
	if err != nil {
		r.logger.Warn("skipping unreadable metadata object",
			zap.String("path", path), zap.Error(err))
		return ScraperMetadata{}, false
	}
	meta, err := DecodeMetadata(content)
	if err != nil {
		r.logger.Warn("skipping corrupt metadata object",
			zap.String("path", path), zap.Error(err))
		return ScraperMetadata{}, false
	}
	return meta, true
}
