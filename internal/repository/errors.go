package repository

import "errors"

// ErrNotFound reports that no artifact or metadata record matches the
// requested domain or URL. It is the only failure exact-domain and
// pattern-fallback resolution surface to callers.
var ErrNotFound = errors.New("scraper not found")

// ErrIncompletePipeline reports that exactly one half of a list/content
// pair exists. It is distinct from ErrNotFound so callers can report
// partial state rather than "nothing found".
var ErrIncompletePipeline = errors.New("scraper pipeline incomplete")
