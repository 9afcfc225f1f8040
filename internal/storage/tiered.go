package storage

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/autoscraper/scrapervault/internal/metrics"
)

// Tiered composes an optional durable remote store with a mandatory local
// cache. Writes go through to both tiers; reads prefer the remote and
// refresh the local copy, falling back to the cache when the remote is
// absent or unreachable. No locking is performed across concurrent writers
// to the same path; the last writer wins.
type Tiered struct {
	remote Store // nil in local-only mode
	local  Store
	logger *zap.Logger
}

// NewTiered builds a tiered store. remote may be nil, in which case every
// operation is served by the local cache alone.
func NewTiered(remote, local Store, logger *zap.Logger) *Tiered {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Tiered{
		remote: remote,
		local:  local,
		logger: logger,
	}
}

// RemoteConfigured reports whether a durable remote tier is present.
func (t *Tiered) RemoteConfigured() bool {
	return t.remote != nil
}

// Save writes content to the local cache first and then to the remote tier
// when one is configured. A remote failure is logged, not raised: the local
// cache remains authoritative for the current process. Without a remote
// tier a local failure is fatal, since there is nowhere else to write.
func (t *Tiered) Save(ctx context.Context, path string, content []byte) error {
	localErr := t.local.Save(ctx, path, content)
	metrics.ObserveStorageOperation("local", "save", localErr)
	if localErr != nil {
		if t.remote == nil {
			return fmt.Errorf("save %s: %w", path, localErr)
		}
		t.logger.Error("local cache write failed", zap.String("path", path), zap.Error(localErr))
	}

	if t.remote == nil {
		return nil
	}

	err := t.remote.Save(ctx, path, content)
	metrics.ObserveStorageOperation("remote", "save", err)
	if err != nil {
		if localErr != nil {
			// Neither tier holds the object; this one cannot be absorbed.
			return fmt.Errorf("save %s: remote: %w (local: %v)", path, err, localErr)
		}
		t.logger.Warn("remote write failed, local cache holds the object",
			zap.String("path", path), zap.Error(err))
	}
	return nil
}

// Read prefers the remote tier when configured, refreshing the local cache
// with whatever it returns. A remote miss or backend error silently falls
// back to the local cache.
func (t *Tiered) Read(ctx context.Context, path string) ([]byte, error) {
	if t.remote != nil {
		content, err := t.remote.Read(ctx, path)
		metrics.ObserveStorageOperation("remote", "read", err)
		if err == nil {
			if cacheErr := t.local.Save(ctx, path, content); cacheErr != nil {
				t.logger.Warn("local cache refresh failed",
					zap.String("path", path), zap.Error(cacheErr))
			}
			return content, nil
		}
		if !IsNotFound(err) {
			t.logger.Warn("remote read failed, falling back to local cache",
				zap.String("path", path), zap.Error(err))
		}
	}

	content, err := t.local.Read(ctx, path)
	metrics.ObserveStorageOperation("local", "read", err)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("read %s: %w", path, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return content, nil
}

// Exists checks the remote tier first when configured, suppressing backend
// errors in favor of the local answer.
func (t *Tiered) Exists(ctx context.Context, path string) (bool, error) {
	if t.remote != nil {
		ok, err := t.remote.Exists(ctx, path)
		if err == nil {
			return ok, nil
		}
		t.logger.Warn("remote existence check failed, using local cache",
			zap.String("path", path), zap.Error(err))
	}
	return t.local.Exists(ctx, path)
}

// List returns the union of the remote listing and the local cache walk,
// deduplicated by path and sorted lexicographically. Both tiers may hold
// answers the other lacks: a remote entry not yet cached, or a local-only
// record created while the remote was unreachable.
func (t *Tiered) List(ctx context.Context, prefix string) ([]string, error) {
	seen := make(map[string]struct{})

	if t.remote != nil {
		remotePaths, err := t.remote.List(ctx, prefix)
		if err != nil {
			t.logger.Warn("remote listing failed, using local cache only",
				zap.String("prefix", prefix), zap.Error(err))
		} else {
			for _, p := range remotePaths {
				seen[p] = struct{}{}
			}
		}
	}

	localPaths, err := t.local.List(ctx, prefix)
	if err != nil {
		if len(seen) == 0 {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		t.logger.Warn("local listing failed", zap.String("prefix", prefix), zap.Error(err))
	}
	for _, p := range localPaths {
		seen[p] = struct{}{}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}
