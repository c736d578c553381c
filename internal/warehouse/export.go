package warehouse

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

// SnapshotExport is the Parquet row shape for an exported snapshot fact,
// denormalized against its dimensions. Ranks are nullable: a row can make
// the per-language cut without an overall rank and vice versa.
type SnapshotExport struct {
	RepoFullName string `parquet:"repo_full_name,snappy"`

	Language string `parquet:"language,snappy"`

	SnapshotDate time.Time `parquet:"snapshot_date,snappy"`

	Stars int32 `parquet:"stars,snappy"`

	Forks int32 `parquet:"forks,snappy"`

	RecencyScore float64 `parquet:"recency_score,snappy"`

	NormalizedStars float64 `parquet:"normalized_stars,snappy"`

	MomentumScore float64 `parquet:"momentum_score,snappy"`

	QualityScore float64 `parquet:"quality_score,snappy"`

	StarRank *int32 `parquet:"star_rank,optional,snappy"`

	RankOverall *int32 `parquet:"rank_overall,optional,snappy"`

	RankInLanguage *int32 `parquet:"rank_in_language,optional,snappy"`

	UsesRender bool `parquet:"uses_render,snappy"`

	RenderCategory *string `parquet:"render_category,optional,snappy"`
}

// FetchSnapshots reads the snapshot facts for one date, denormalized for
// export. A zero date means all dates.
func (s *Store) FetchSnapshots(ctx context.Context, date time.Time) ([]SnapshotExport, error) {
	query := `
		SELECT dr.repo_full_name, dl.language_name, frs.snapshot_date,
		       frs.stars, frs.forks, frs.recency_score, frs.normalized_stars,
		       frs.momentum_score, frs.quality_score,
		       frs.star_rank, frs.rank_overall, frs.rank_in_language,
		       dr.uses_render, dr.render_category
		FROM fact_repo_snapshots frs
		JOIN dim_repositories dr ON frs.repo_key = dr.repo_key
		JOIN dim_languages dl ON frs.language_key = dl.language_key
	`
	var args []any
	if !date.IsZero() {
		query += ` WHERE frs.snapshot_date = $1`
		args = append(args, date.Format("2006-01-02"))
	}
	query += ` ORDER BY frs.snapshot_date, frs.momentum_score DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshot export: %w", err)
	}
	defer rows.Close()

	var out []SnapshotExport
	for rows.Next() {
		var r SnapshotExport
		if err := rows.Scan(
			&r.RepoFullName, &r.Language, &r.SnapshotDate,
			&r.Stars, &r.Forks, &r.RecencyScore, &r.NormalizedStars,
			&r.MomentumScore, &r.QualityScore,
			&r.StarRank, &r.RankOverall, &r.RankInLanguage,
			&r.UsesRender, &r.RenderCategory,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot export row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot export rows: %w", err)
	}
	return out, nil
}

// RunExport is the Parquet row shape for an exported pipeline run.
type RunExport struct {
	RunID int64 `parquet:"run_id,snappy"`

	RunAt time.Time `parquet:"run_at,snappy"`

	DurationSeconds float64 `parquet:"duration_seconds,snappy"`

	ReposProcessed int32 `parquet:"repos_processed,snappy"`

	Languages string `parquet:"languages,snappy"`

	Success bool `parquet:"success,snappy"`
}

// FetchRuns reads all pipeline-run stats rows for export.
func (s *Store) FetchRuns(ctx context.Context) ([]RunExport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, run_at, duration_seconds, repos_processed, languages, success
		FROM fact_pipeline_runs
		ORDER BY run_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query run export: %w", err)
	}
	defer rows.Close()

	var out []RunExport
	for rows.Next() {
		var r RunExport
		var languages []string
		if err := rows.Scan(
			&r.RunID, &r.RunAt, &r.DurationSeconds, &r.ReposProcessed,
			&languages, &r.Success,
		); err != nil {
			return nil, fmt.Errorf("scan run export row: %w", err)
		}
		r.Languages = strings.Join(languages, ",")
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run export rows: %w", err)
	}
	return out, nil
}

// WriteSnapshotsParquet writes snapshot export rows to a Parquet file.
// The schema is inferred from the SnapshotExport struct tags.
func WriteSnapshotsParquet(data []SnapshotExport, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteRunsParquet writes pipeline-run export rows to a Parquet file.
func WriteRunsParquet(data []RunExport, outputPath string) error {
	return writeParquet(data, outputPath)
}

func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	defer func() { _ = writer.Close() }()

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	return nil
}
