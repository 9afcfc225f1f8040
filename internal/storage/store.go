// Package storage defines the blob storage contract shared by the repository
// tiers. The abstraction keeps the rest of the service independent of a
// specific backend (Google Cloud Storage, the local filesystem, or an
// in-memory store for tests).
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound reports that a logical path has no stored object.
// Backends translate their native absence signal into this sentinel so the
// tiered store can fall back without inspecting backend-specific errors.
var ErrObjectNotFound = errors.New("storage: object not found")

// Store is the common contract for a blob storage backend. Paths are
// logical, slash-separated keys such as "scrapers/example_org.py".
type Store interface {
	// Save writes content at path, overwriting any existing object.
	Save(ctx context.Context, path string, content []byte) error
	// Read returns the content stored at path, or ErrObjectNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
	// Exists reports whether an object is stored at path.
	Exists(ctx context.Context, path string) (bool, error)
	// List returns every stored path that begins with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// IsNotFound reports whether err denotes an absent object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}
