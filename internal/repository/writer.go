package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/autoscraper/scrapervault/internal/storage"
)

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// SaveRequest carries everything needed to persist a generated scraper.
type SaveRequest struct {
	Code      string
	URL       string
	Selectors SelectorMap
	SiteName  string
	Type      ScraperType
}

// SavedArtifact reports where a scraper and its metadata were persisted.
type SavedArtifact struct {
	ArtifactPath string `json:"artifact_path"`
	MetadataPath string `json:"metadata_path"`
	Domain       string `json:"domain"`
}

// Writer persists scraper code and metadata through the storage tier. The
// two writes are not transactional: the code blob goes first and the
// metadata record last, so resolution (which treats metadata as the index)
// never observes an indexed artifact whose code is missing.
type Writer struct {
	store  storage.Store
	clock  Clock
	logger *zap.Logger
}

// NewWriter constructs a Writer.
func NewWriter(store storage.Store, clock Clock, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// SaveArtifact derives the domain from the request URL and persists the
// code blob plus a fresh metadata record under the domain's key.
func (w *Writer) SaveArtifact(ctx context.Context, req SaveRequest) (SavedArtifact, error) {
	if strings.TrimSpace(req.Code) == "" {
		return SavedArtifact{}, fmt.Errorf("scraper code is required")
	}
	scraperType := req.Type
	if scraperType == "" {
		scraperType = TypeSingle
	}
	if !scraperType.Valid() {
		return SavedArtifact{}, fmt.Errorf("unknown scraper type %q", scraperType)
	}

	domain, err := DomainFromURL(req.URL)
	if err != nil {
		return SavedArtifact{}, err
	}
	key := KeyFor(domain, scraperType)
	artifactPath := ArtifactPath(key)
	metadataPath := MetadataPath(key)

	if err := w.store.Save(ctx, artifactPath, []byte(req.Code)); err != nil {
		return SavedArtifact{}, fmt.Errorf("save scraper code for %s: %w", domain, err)
	}
	w.logger.Info("saved scraper code",
		zap.String("domain", domain), zap.String("path", artifactPath))

	siteName := req.SiteName
	if siteName == "" {
		siteName = domain
	}
	now := w.clock.Now()
	meta := ScraperMetadata{
		Domain:        domain,
		SiteName:      siteName,
		ScraperType:   scraperType,
		URLPattern:    PatternForHost(domain),
		ExampleURL:    req.URL,
		Fields:        req.Selectors.Fields(),
		Selectors:     req.Selectors,
		CreatedAt:     now,
		LastValidated: now,
		Version:       SchemaVersion,
	}

	encoded, err := EncodeMetadata(meta)
	if err != nil {
		return SavedArtifact{}, err
	}
	if err := w.store.Save(ctx, metadataPath, encoded); err != nil {
		return SavedArtifact{}, fmt.Errorf("save metadata for %s: %w", domain, err)
	}
	w.logger.Info("saved scraper metadata",
		zap.String("domain", domain), zap.String("path", metadataPath))

	return SavedArtifact{
		ArtifactPath: artifactPath,
		MetadataPath: metadataPath,
		Domain:       domain,
	}, nil
}

// TouchValidated bumps last_validated on an existing metadata record,
// leaving every other field untouched. A missing record is logged as a
// warning, not an error: validation of an unsaved scraper is routine while
// a pipeline is being assembled.
func (w *Writer) TouchValidated(ctx context.Context, domain string) error {
	metadataPath := MetadataPath(DomainKey(domain))

	content, err := w.store.Read(ctx, metadataPath)
	if err != nil {
		if storage.IsNotFound(err) {
			w.logger.Warn("no metadata to update validation timestamp",
				zap.String("domain", domain))
			return nil
		}
		return fmt.Errorf("read metadata for %s: %w", domain, err)
	}

	meta, err := DecodeMetadata(content)
	if err != nil {
		return fmt.Errorf("metadata for %s: %w", domain, err)
	}
	meta.LastValidated = w.clock.Now()

	encoded, err := EncodeMetadata(meta)
	if err != nil {
		return err
	}
	if err := w.store.Save(ctx, metadataPath, encoded); err != nil {
		return fmt.Errorf("rewrite metadata for %s: %w", domain, err)
	}
	w.logger.Info("updated validation timestamp", zap.String("domain", domain))
	return nil
}
