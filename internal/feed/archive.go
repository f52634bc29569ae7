// Package feed archives alerted postings into Postgres for the admin UI and
// any downstream service that wants history beyond the dedup TTLs. The
// archive is optional and strictly fail-soft: the alert pipeline never waits
// on or aborts for it.
package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"velocity/monitor-service/internal/model"
)

// Archive writes alerted postings to the job_feed table.
type Archive struct {
	pool *pgxpool.Pool
	log  *zap.SugaredLogger
}

// NewArchive constructs an Archive over an existing pool.
func NewArchive(pool *pgxpool.Pool, log *zap.SugaredLogger) *Archive {
	return &Archive{pool: pool, log: log.Named("feed")}
}

// Store inserts the posting unless the same (source, external_id) identity is
// already archived. Returns whether a row was written.
func (a *Archive) Store(ctx context.Context, job model.JobPosting) (bool, error) {
	raw, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("marshal posting: %w", err)
	}

	tag, err := a.pool.Exec(ctx,
		`INSERT INTO job_feed (source, external_id, raw_data, source_url)
		 SELECT $1, $2, $3::jsonb, $4
		 WHERE NOT EXISTS (
		   SELECT 1 FROM job_feed WHERE source = $1 AND external_id = $2
		 )`,
		job.Source, job.ExternalID, string(raw), job.URL,
	)
	if err != nil {
		return false, fmt.Errorf("insert job_feed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
