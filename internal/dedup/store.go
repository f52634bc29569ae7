// Package dedup implements the durable "already alerted" cache. The existence
// of a record is the proof that an alert fired for a given posting identity;
// its absence is the only condition under which a new alert may fire.
package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"velocity/monitor-service/internal/model"
)

// KeyPrefix namespaces every dedup record in the backing store.
const KeyPrefix = "seen:"

// Key builds the record key for a posting identity.
func Key(source, externalID string) string {
	return fmt.Sprintf("%s%s:%s", KeyPrefix, source, externalID)
}

// TTLClass is the expiry policy assigned to a record at write time, chosen by
// the caller per the source's posting-recency characteristics.
type TTLClass time.Duration

const (
	// TTLShort suits fast-moving boards where postings churn within hours.
	TTLShort = TTLClass(6 * time.Hour)
	// TTLLong suits slow-moving boards.
	TTLLong = TTLClass(24 * time.Hour)
	// TTLPermanent is for sources without a native posting timestamp, where
	// recency cannot be established and re-alerting must be prevented forever.
	TTLPermanent = TTLClass(0)
)

// Record is one cached dedup entry as returned by Scan. TTL is the remaining
// lifetime; negative means no expiry.
type Record struct {
	Key string           `json:"key"`
	Job model.JobPosting `json:"job"`
	TTL time.Duration    `json:"ttl"`
}

// SeenStore is the cache capability the pipeline depends on. The Redis
// implementation is used in production; the in-memory one in tests and
// redis-less development runs.
type SeenStore interface {
	// Seen reports whether key has already triggered an alert. Backend
	// failures are fail-open: the implementation must return false rather
	// than block the pipeline.
	Seen(ctx context.Context, key string) bool
	// MarkSeen writes the record with the posting snapshot and TTL class.
	MarkSeen(ctx context.Context, key string, job model.JobPosting, class TTLClass) error
	// Delete removes a single record.
	Delete(ctx context.Context, key string) error
	// Scan returns every live record with its remaining TTL.
	Scan(ctx context.Context) ([]Record, error)
}

// RemoveCompany deletes every cached record whose snapshot's company name
// contains company (case-insensitive) and returns the removed records. Used
// by the company-block administrative operation.
func RemoveCompany(ctx context.Context, s SeenStore, company string) ([]Record, error) {
	records, err := s.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan seen records: %w", err)
	}

	needle := strings.ToLower(company)
	var removed []Record
	for _, rec := range records {
		if !strings.Contains(strings.ToLower(rec.Job.Company), needle) {
			continue
		}
		if err := s.Delete(ctx, rec.Key); err != nil {
			return removed, fmt.Errorf("delete %s: %w", rec.Key, err)
		}
		removed = append(removed, rec)
	}
	return removed, nil
}
