package fetch

import (
	"bytes"
	"context"

	"go.uber.org/zap"

	"github.com/autoscraper/scrapervault/internal/metrics"
)

var shellMarkers = [][]byte{
	[]byte("__next"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
}

// ShellHeuristic flags static responses that look like unrendered
// application shells and therefore need a browser pass.
type ShellHeuristic struct {
	MinDocumentBytes int
}

// NewShellHeuristic creates a heuristic with a sensible size floor.
func NewShellHeuristic(minBytes int) *ShellHeuristic {
	if minBytes <= 0 {
		minBytes = 2048
	}
	return &ShellHeuristic{MinDocumentBytes: minBytes}
}

// NeedsRendering reports whether resp warrants a headless retry.
func (h *ShellHeuristic) NeedsRendering(resp Response) bool {
	if resp.StatusCode != 200 {
		return false
	}
	if len(resp.Body) == 0 {
		return true
	}
	if len(resp.Body) < h.MinDocumentBytes {
		return true
	}
	for _, marker := range shellMarkers {
		if bytes.Contains(resp.Body, marker) {
			return true
		}
	}
	return false
}

// Promoting tries the static fetcher first and escalates to the headless
// fetcher when the heuristic says the static result is a shell. Without a
// headless fetcher the static result is returned as-is.
type Promoting struct {
	static    Fetcher
	headless  Fetcher
	heuristic *ShellHeuristic
	logger    *zap.Logger
}

// NewPromoting wires the two-tier fetcher. headless may be nil.
func NewPromoting(static, headless Fetcher, heuristic *ShellHeuristic, logger *zap.Logger) *Promoting {
	if heuristic == nil {
		heuristic = NewShellHeuristic(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Promoting{
		static:    static,
		headless:  headless,
		heuristic: heuristic,
		logger:    logger,
	}
}

// Fetch retrieves req, rendering with a browser only when needed.
func (p *Promoting) Fetch(ctx context.Context, req Request) (Response, error) {
	resp, err := p.static.Fetch(ctx, req)
	if err != nil {
		if p.headless == nil {
			return Response{}, err
		}
		p.logger.Warn("static fetch failed, retrying headless",
			zap.String("url", req.URL),
			zap.Error(err))
		return p.headless.Fetch(ctx, req)
	}

	if p.headless == nil || !p.heuristic.NeedsRendering(resp) {
		return resp, nil
	}

	metrics.ObserveFetchPromotion()
	p.logger.Debug("promoting fetch to headless",
		zap.String("url", req.URL),
		zap.Int("static_bytes", len(resp.Body)))
	rendered, err := p.headless.Fetch(ctx, req)
	if err != nil {
		p.logger.Warn("headless fetch failed, keeping static response",
			zap.String("url", req.URL),
			zap.Error(err))
		return resp, nil
	}
	return rendered, nil
}
