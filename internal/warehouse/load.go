package warehouse

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/trenderhq/trender/schema"
)

// LoadAnalytics writes the ranked cohort into the analytics layer: the
// repository dimension, the daily snapshot facts and the per-service render
// usage facts. Each row commits independently so a single bad record is
// logged and skipped while the rest of the load proceeds.
func (s *Store) LoadAnalytics(ctx context.Context, rows []schema.RankedRepo, runDate time.Time) error {
	snapshotDate := runDate.Format("2006-01-02")

	for i := range rows {
		row := &rows[i]
		if row.FullName == "" {
			continue
		}
		if err := s.upsertDimRepository(ctx, row); err != nil {
			s.log.WithError(err).WithField("repo", row.FullName).Warn("Dimension upsert failed, skipping row")
			continue
		}
		if err := s.upsertFactSnapshot(ctx, row, snapshotDate); err != nil {
			s.log.WithError(err).WithField("repo", row.FullName).Warn("Snapshot upsert failed, skipping row")
			continue
		}
		if row.UsesRender {
			s.insertRenderUsage(ctx, row, snapshotDate)
		}
	}

	s.log.WithFields(logrus.Fields{"rows": len(rows), "date": snapshotDate}).Info("Analytics load complete")
	return nil
}

// upsertDimRepository overwrites the dimension record in place. History is
// carried by the dated fact tables, not by dimension versioning.
func (s *Store) upsertDimRepository(ctx context.Context, row *schema.RankedRepo) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dim_repositories
			(repo_full_name, repo_url, description, readme_content, language,
			 created_at, uses_render, render_category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (repo_full_name) DO UPDATE SET
			repo_url = EXCLUDED.repo_url,
			description = EXCLUDED.description,
			readme_content = EXCLUDED.readme_content,
			language = EXCLUDED.language,
			uses_render = EXCLUDED.uses_render,
			render_category = EXCLUDED.render_category,
			row_updated_at = NOW()
	`, row.FullName, row.URL, row.Description, row.Readme, row.Language,
		row.CreatedAt, row.UsesRender, row.RenderCategory)
	return err
}

// upsertFactSnapshot writes the daily snapshot fact, keyed by repository,
// language and date. Reruns on the same day overwrite the day's metrics.
// A repository whose language has no dimension row is skipped by the key
// lookup, surfacing as pgx.ErrNoRows to the caller.
func (s *Store) upsertFactSnapshot(ctx context.Context, row *schema.RankedRepo, snapshotDate string) error {
	var repoKey, languageKey int64
	err := s.pool.QueryRow(ctx, `
		SELECT dr.repo_key, dl.language_key
		FROM dim_repositories dr
		JOIN dim_languages dl ON dr.language = dl.language_name
		WHERE dr.repo_full_name = $1
	`, row.FullName).Scan(&repoKey, &languageKey)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO fact_repo_snapshots
			(repo_key, language_key, snapshot_date, stars, forks,
			 recency_score, normalized_stars, momentum_score, quality_score,
			 star_rank, rank_overall, rank_in_language)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (repo_key, language_key, snapshot_date) DO UPDATE SET
			stars = EXCLUDED.stars,
			forks = EXCLUDED.forks,
			recency_score = EXCLUDED.recency_score,
			normalized_stars = EXCLUDED.normalized_stars,
			momentum_score = EXCLUDED.momentum_score,
			quality_score = EXCLUDED.quality_score,
			star_rank = EXCLUDED.star_rank,
			rank_overall = EXCLUDED.rank_overall,
			rank_in_language = EXCLUDED.rank_in_language
	`, repoKey, languageKey, snapshotDate, row.Stars, row.Forks,
		row.RecencyScore, row.NormalizedStars, row.MomentumScore, row.QualityScore,
		nullableRank(row.StarRank), nullableRank(row.RankOverall), nullableRank(row.RankInLanguage))
	return err
}

// insertRenderUsage writes one usage fact per declared service type.
// Unrecognized service types have no dimension row and are skipped quietly;
// anything else that fails is logged and skipped.
func (s *Store) insertRenderUsage(ctx context.Context, row *schema.RankedRepo, snapshotDate string) {
	var repoKey int64
	if err := s.pool.QueryRow(ctx,
		`SELECT repo_key FROM dim_repositories WHERE repo_full_name = $1`,
		row.FullName).Scan(&repoKey); err != nil {
		s.log.WithError(err).WithField("repo", row.FullName).Warn("Repo key lookup failed for usage fact")
		return
	}

	for _, serviceType := range row.RenderServices {
		var serviceKey int64
		err := s.pool.QueryRow(ctx,
			`SELECT service_key FROM dim_render_services WHERE service_type = $1`,
			serviceType).Scan(&serviceKey)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			s.log.WithError(err).WithField("service", serviceType).Warn("Service key lookup failed")
			continue
		}

		_, err = s.pool.Exec(ctx, `
			INSERT INTO fact_render_usage
				(repo_key, service_key, snapshot_date, service_count,
				 complexity_score, has_blueprint)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (repo_key, service_key, snapshot_date) DO NOTHING
		`, repoKey, serviceKey, snapshotDate, row.ServiceCount,
			row.RenderComplexity, row.HasBlueprintButton)
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"repo": row.FullName, "service": serviceType}).Warn("Usage fact insert failed")
		}
	}
}

// nullableRank maps the zero "unranked" ordinal to SQL NULL.
func nullableRank(rank int) any {
	if rank <= 0 {
		return nil
	}
	return rank
}
