// Package fetch retrieves page content for selector probing and validation.
// A static HTTP fetcher covers server-rendered sites; a headless browser
// fetcher covers script-heavy ones. The promoting fetcher tries static first
// and escalates when the result looks like an unrendered shell.
package fetch

import (
	"context"
	"net/http"
	"time"
)

// Request names a page to retrieve.
type Request struct {
	URL     string
	Headers http.Header
}

// Response carries the retrieved document.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Rendered   bool
}

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}
