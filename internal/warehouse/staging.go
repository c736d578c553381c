package warehouse

import (
	"context"
	"fmt"

	"github.com/trenderhq/trender/schema"
)

// UpsertStaging writes one enriched repository to the validated staging
// table, keyed by full name. Mutable fields are overwritten on conflict;
// creation metadata stays at first-seen values.
func (s *Store) UpsertStaging(ctx context.Context, repo *schema.EnrichedRepository) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stg_repos_validated
			(repo_full_name, repo_url, language, description, stars, forks,
			 open_issues, created_at, updated_at, readme_content,
			 uses_render, data_quality_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (repo_full_name) DO UPDATE SET
			description = EXCLUDED.description,
			stars = EXCLUDED.stars,
			forks = EXCLUDED.forks,
			open_issues = EXCLUDED.open_issues,
			updated_at = EXCLUDED.updated_at,
			readme_content = EXCLUDED.readme_content,
			uses_render = EXCLUDED.uses_render,
			data_quality_score = EXCLUDED.data_quality_score,
			loaded_at = NOW()
	`, repo.FullName, repo.URL, repo.Language, repo.Description,
		repo.Stars, repo.Forks, repo.OpenIssues, repo.CreatedAt, repo.UpdatedAt,
		repo.Readme, repo.Render.UsesRender, repo.QualityScore)
	if err != nil {
		return fmt.Errorf("upsert staging row for %s: %w", repo.FullName, err)
	}
	return nil
}

// UpsertRenderEnrichment writes the marker-detection result for one
// repository, keyed by full name.
func (s *Store) UpsertRenderEnrichment(ctx context.Context, repo *schema.EnrichedRepository) error {
	services := repo.Render.Services
	if services == nil {
		services = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stg_render_enrichment
			(repo_full_name, render_category, render_services,
			 has_blueprint_button, render_complexity_score, service_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (repo_full_name) DO UPDATE SET
			render_category = EXCLUDED.render_category,
			render_services = EXCLUDED.render_services,
			has_blueprint_button = EXCLUDED.has_blueprint_button,
			render_complexity_score = EXCLUDED.render_complexity_score,
			service_count = EXCLUDED.service_count,
			loaded_at = NOW()
	`, repo.FullName, repo.Render.Category, services,
		repo.Render.HasBlueprintButton, repo.Render.ComplexityScore, repo.Render.ServiceCount)
	if err != nil {
		return fmt.Errorf("upsert enrichment row for %s: %w", repo.FullName, err)
	}
	return nil
}
