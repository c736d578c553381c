package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/trenderhq/trender/schema"
)

// RecordRun appends one pipeline-execution stats row. The table is
// append-only; every run, failed ones included, leaves a record.
func (s *Store) RecordRun(ctx context.Context, summary schema.RunSummary, runAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fact_pipeline_runs
			(run_at, duration_seconds, repos_processed, languages, success)
		VALUES ($1, $2, $3, $4, $5)
	`, runAt, summary.ElapsedSeconds, summary.ReposProcessed, summary.Languages, summary.Success)
	if err != nil {
		return fmt.Errorf("insert run stats: %w", err)
	}
	return nil
}
