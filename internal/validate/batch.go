package validate

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// BatchResult summarizes one domain's outcome in a batch run.
type BatchResult struct {
	Domain  string `json:"domain"`
	Verdict string `json:"verdict"`
	Error   string `json:"error,omitempty"`
}

// ValidateAll runs every stored scraper against its example URL with at most
// concurrency sandbox processes at a time. Per-domain failures are reported
// in the results, not as an error; the returned error covers only the
// initial listing.
func (v *Validator) ValidateAll(ctx context.Context, concurrency int) ([]BatchResult, error) {
	if concurrency <= 0 {
		concurrency = 2
	}

	metas, err := v.resolver.ListArtifacts(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]BatchResult, len(metas))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, meta := range metas {
		wg.Add(1)
		go func(i int, domain string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = BatchResult{Domain: domain, Error: ctx.Err().Error()}
				return
			}

			result, err := v.Validate(ctx, domain, "")
			if err != nil {
				v.logger.Warn("batch validation error",
					zap.String("domain", domain),
					zap.Error(err))
				results[i] = BatchResult{Domain: domain, Error: err.Error()}
				return
			}
			results[i] = BatchResult{
				Domain:  domain,
				Verdict: verdictLabel(result.Verdict),
			}
		}(i, meta.LookupDomain())
	}
	wg.Wait()

	return results, nil
}
