package warehouse

import (
	"context"
	"fmt"

	"github.com/trenderhq/trender/schema"
)

// extractQuery selects the transform cohort: rows at or above the quality
// threshold, capped per language by star rank, with the marker cohort kept
// regardless of the cap. The window rank makes the cap a property of the
// query rather than a post-processing step.
const extractQuery = `
	SELECT
		q.repo_full_name, q.repo_url, q.language,
		COALESCE(q.description, ''), q.stars, q.forks, q.open_issues,
		q.created_at, q.updated_at, COALESCE(q.readme_content, ''),
		q.uses_render, q.data_quality_score,
		COALESCE(q.render_category, ''),
		COALESCE(q.render_services, '{}'),
		COALESCE(q.render_complexity_score, 0),
		COALESCE(q.has_blueprint_button, FALSE),
		COALESCE(q.service_count, 0)
	FROM (
		SELECT
			srv.repo_full_name, srv.repo_url, srv.language, srv.description,
			srv.stars, srv.forks, srv.open_issues, srv.created_at, srv.updated_at,
			srv.readme_content, srv.uses_render, srv.data_quality_score,
			sre.render_category, sre.render_services,
			sre.render_complexity_score, sre.has_blueprint_button, sre.service_count,
			ROW_NUMBER() OVER (PARTITION BY srv.language ORDER BY srv.stars DESC) AS star_rank
		FROM stg_repos_validated srv
		LEFT JOIN stg_render_enrichment sre
			ON srv.repo_full_name = sre.repo_full_name
		WHERE srv.data_quality_score >= $1
	) q
	WHERE q.star_rank <= $2 OR q.language = $3
	ORDER BY q.stars DESC
`

// ExtractStaging reads the transform cohort from staging, joined with its
// render enrichment, ordered by stars descending.
func (s *Store) ExtractStaging(ctx context.Context, policy schema.ScoringPolicy) ([]schema.StagedRepo, error) {
	rows, err := s.pool.Query(ctx, extractQuery,
		policy.QualityThreshold, policy.PerLanguageLimit, schema.MarkerLanguageTag)
	if err != nil {
		return nil, fmt.Errorf("query staging extract: %w", err)
	}
	defer rows.Close()

	var out []schema.StagedRepo
	for rows.Next() {
		var r schema.StagedRepo
		if err := rows.Scan(
			&r.FullName, &r.URL, &r.Language,
			&r.Description, &r.Stars, &r.Forks, &r.OpenIssues,
			&r.CreatedAt, &r.UpdatedAt, &r.Readme,
			&r.UsesRender, &r.QualityScore,
			&r.RenderCategory, &r.RenderServices, &r.RenderComplexity,
			&r.HasBlueprintButton, &r.ServiceCount,
		); err != nil {
			return nil, fmt.Errorf("scan staging row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staging rows: %w", err)
	}
	return out, nil
}
