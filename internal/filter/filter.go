// Package filter decides whether a fetched posting is worth alerting on.
// Every predicate is a pure case-insensitive substring check over the current
// settings snapshot, so a cycle's decisions are reproducible from its inputs.
package filter

import (
	"strings"
	"time"

	"velocity/monitor-service/internal/model"
	"velocity/monitor-service/internal/settings"
)

// Verdict says what happened to a posting and, on rejection, which step
// rejected it (used only for logging).
type Verdict struct {
	Accepted bool
	Reason   string
}

var accepted = Verdict{Accepted: true}

func rejected(reason string) Verdict { return Verdict{Reason: reason} }

// Pipeline evaluates general-pool postings against the five filter steps.
type Pipeline struct {
	Lists         settings.Lists
	RecencyWindow time.Duration
}

// Check runs the full pipeline over a general-pool posting. Order matters
// only for the reported reason; all steps are conjunctive.
func (p Pipeline) Check(job model.JobPosting, now time.Time) Verdict {
	if !job.RecentHint {
		if job.PostedAt == nil {
			return rejected("no timestamp")
		}
		if now.Sub(*job.PostedAt) > p.RecencyWindow {
			return rejected("stale")
		}
	}

	title := strings.ToLower(job.Title)
	for _, kw := range p.Lists.TitleFilterKeywords {
		if kw != "" && strings.Contains(title, strings.ToLower(kw)) {
			return rejected("excluded title: " + kw)
		}
	}

	if !containsAny(title, p.Lists.TargetKeywords) {
		return rejected("no target keyword")
	}

	location := strings.ToLower(job.Location)
	if !strings.Contains(location, "remote") && !containsAny(location, p.Lists.TargetLocations) {
		return rejected("location mismatch")
	}

	if blocked, name := p.blockedCompany(job.Company); blocked {
		return rejected("blocked company: " + name)
	}

	return accepted
}

// CheckRecent runs the reduced pipeline for the pre-filtered pool: the
// adapter already vouched for freshness and relevance, but a blocked company
// must never alert regardless of which pool it arrived in.
func (p Pipeline) CheckRecent(job model.JobPosting) Verdict {
	if blocked, name := p.blockedCompany(job.Company); blocked {
		return rejected("blocked company: " + name)
	}
	return accepted
}

func (p Pipeline) blockedCompany(company string) (bool, string) {
	c := strings.ToLower(company)
	for _, b := range p.Lists.BlockedCompanies {
		if b != "" && strings.Contains(c, strings.ToLower(b)) {
			return true, b
		}
	}
	return false, ""
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(haystack, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
