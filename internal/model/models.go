// Package model defines shared data structures for the monitor service.
package model

import "time"

// JobPosting is a normalised posting fetched from an external job board.
// It is immutable once produced by a source adapter; the serialized form is
// what gets stored as the dedup-record snapshot and pushed to subscribers.
type JobPosting struct {
	Source     string     `json:"source"`
	ExternalID string     `json:"externalId"`
	Title      string     `json:"title"`
	Company    string     `json:"company"`
	Location   string     `json:"location"`
	URL        string     `json:"url"`
	PostedAt   *time.Time `json:"postedAt,omitempty"`
	Salary     string     `json:"salary,omitempty"`
	WorkModel  string     `json:"workModel,omitempty"`

	// RecentHint is set by an adapter that has already established the item
	// is inside its own recency window; the orchestrator then skips its own
	// recency cutoff for this item.
	RecentHint bool `json:"isRecentHint,omitempty"`
}

// FetchResult is what every source adapter returns per query. Adapters never
// return a Go error to the orchestrator; all failure is encoded here.
type FetchResult struct {
	// Jobs is the general pool, subject to the full filter pipeline.
	Jobs []JobPosting
	// RecentJobs is the pre-filtered pool: items the adapter already scored
	// as fresh and relevant. They skip keyword/recency/location filtering and
	// go through dedup (plus the blocked-company check) only.
	RecentJobs []JobPosting
	// Retries is the number of transient-error retries the adapter consumed.
	Retries int
	// Failed is true when the adapter could not produce usable data.
	Failed bool
}

// CycleStats aggregates adapter outcomes over one scheduler cycle.
type CycleStats struct {
	TotalCalls       int
	Passed           int
	Failed           int
	Retried          int
	RetriedAndPassed int
}

// Record folds a single FetchResult into the stats.
func (s *CycleStats) Record(r FetchResult) {
	s.TotalCalls++
	if r.Failed {
		s.Failed++
	} else {
		s.Passed++
	}
	if r.Retries > 0 {
		s.Retried++
		if !r.Failed {
			s.RetriedAndPassed++
		}
	}
}

// SuccessRate returns Passed/TotalCalls as a percentage, 0 for an empty cycle.
func (s CycleStats) SuccessRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.TotalCalls) * 100
}

// Event envelope types pushed to live subscribers.
const (
	EventNewJob         = "NEW_JOB"
	EventCompanyBlocked = "COMPANY_BLOCKED"
	EventJobDismissed   = "JOB_DISMISSED"
	EventLog            = "LOG"
)

// Event is the {type, data} envelope delivered over the subscriber channel.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
