// Package settings holds the four operator-tunable runtime lists. They are
// re-read at the start of every scrape cycle, with no process-local caching, so
// edits take effect on the next cycle without a restart.
package settings

import "context"

// List names accepted by the store.
const (
	TargetKeywords      = "target_keywords"
	TargetLocations     = "target_locations"
	BlockedCompanies    = "blocked_companies"
	TitleFilterKeywords = "title_filter_keywords"
)

// Names enumerates the valid list names in a stable order.
var Names = []string{TargetKeywords, TargetLocations, BlockedCompanies, TitleFilterKeywords}

// ListStore reads and writes the named lists.
type ListStore interface {
	// Get returns the stored list, or the compiled-in default when the list
	// is unset or the backend is unreachable.
	Get(ctx context.Context, name string) []string
	// Set replaces the stored list.
	Set(ctx context.Context, name string, values []string) error
	// SeedIfMissing idempotently writes defaults for any unset list.
	SeedIfMissing(ctx context.Context) error
}

// Lists is a per-cycle snapshot of all four lists, handed to the filter
// pipeline so a cycle sees one consistent view.
type Lists struct {
	TargetKeywords      []string
	TargetLocations     []string
	BlockedCompanies    []string
	TitleFilterKeywords []string
}

// Snapshot reads all four lists from the store.
func Snapshot(ctx context.Context, s ListStore) Lists {
	return Lists{
		TargetKeywords:      s.Get(ctx, TargetKeywords),
		TargetLocations:     s.Get(ctx, TargetLocations),
		BlockedCompanies:    s.Get(ctx, BlockedCompanies),
		TitleFilterKeywords: s.Get(ctx, TitleFilterKeywords),
	}
}
