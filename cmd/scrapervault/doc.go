// Package main hosts the scrapervault service entrypoint.
//
// Architecture overview:
//   - Storage tier: internal/storage layers an optional durable GCS bucket
//     over a mandatory local filesystem cache. Writes go to both tiers
//     (remote failures are absorbed while the local copy succeeds), reads
//     prefer the remote and refresh the cache, and listings merge both
//     tiers.
//   - Repository: internal/repository persists scraper source under
//     scrapers/<key>.py with a JSON metadata record under
//     metadata/<key>.json, and resolves domains or full URLs back to
//     artifacts, including two-stage list/content pipelines.
//   - Sandbox: internal/sandbox runs untrusted scraper code in a separate
//     interpreter process inside its own process group, with a hard
//     timeout, and classifies the outcome from exit status and output
//     markers.
//   - Fetch pipeline: internal/fetch probes pages with a Colly collector
//     and promotes to a headless Chromedp browser when the response looks
//     like an unrendered application shell. Selector maps can be tested
//     against fetched documents with goquery.
//   - Persistence & fanout: validation runs are recorded to Postgres when a
//     DSN is configured, and repository changes are published to Pub/Sub
//     when a topic is configured. Both default to no-ops.
//   - Configuration & plumbing: Viper populates config from file/env
//     (SCRAPERVAULT_ prefix); zap provides structured logging; Prometheus
//     metrics are exported via middleware and the /metrics handler.
//
// Run locally:
//
//	go run ./cmd/scrapervault serve --config config.yaml
//
// The server listens on the configured port, remains stateless across
// requests, and drains cleanly on SIGTERM.
package main
