// Package scraper defines the source-adapter contract and the board adapters
// that implement it. Site-specific extraction lives entirely behind Source;
// the orchestrator only ever sees FetchResults.
package scraper

import (
	"context"

	"velocity/monitor-service/internal/dedup"
	"velocity/monitor-service/internal/model"
)

// Query is the context handed to an adapter for one fetch.
type Query struct {
	Keyword  string
	Location string
}

// Source is one upstream job board. Implementations must never return a Go
// error or panic: transient failures are retried internally with a bounded
// backoff, and anything unrecoverable is reported via FetchResult.Failed.
// Postings without a usable external ID must be dropped by the adapter.
type Source interface {
	// Name scopes every ExternalID this adapter emits.
	Name() string
	// NeedsKeywords reports whether the scheduler should fan out one fetch
	// per target keyword (true) or a single keywordless fetch (false).
	NeedsKeywords() bool
	// TTLClass is the dedup expiry class for postings from this source,
	// chosen per the board's posting churn.
	TTLClass() dedup.TTLClass
	Fetch(ctx context.Context, q Query) model.FetchResult
}
