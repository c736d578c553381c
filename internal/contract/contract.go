// Package contract provides the interfaces and shared configuration that
// decouple the pipeline core from the GitHub client and the warehouse.
package contract

import (
	"context"
	"time"

	"github.com/trenderhq/trender/schema"
)

// RepoAPI defines the GitHub surface consumed by the pipeline. Expected
// failure modes (404, rate limiting, exhausted retries) surface as empty or
// absent results with a nil error; a non-nil error indicates a programmer
// error or invalid credentials.
type RepoAPI interface {
	// SearchRepositories searches by language, sorted by the given field,
	// restricted to repositories pushed since updatedSince when non-zero.
	SearchRepositories(ctx context.Context, language, sort string, updatedSince time.Time) ([]schema.RepositoryCandidate, error)

	// GetRepoDetails fetches the full record for one repository.
	// Returns nil when the repository does not exist.
	GetRepoDetails(ctx context.Context, owner, repo string) (*schema.RepositoryCandidate, error)

	// GetFileContents fetches and decodes one file from the repository root.
	// Returns "" when the file does not exist.
	GetFileContents(ctx context.Context, owner, repo, path string) (string, error)

	// FetchReadme returns the README content truncated to the configured
	// bound, or "" when no README exists under a known filename.
	FetchReadme(ctx context.Context, owner, repo string) (string, error)

	// SearchByMarkerFile searches code for repositories containing the named
	// file, deduplicated by full name, backfilled with repository details
	// where the search response lacks them, filtered client-side by creation
	// date, and sorted by star count descending.
	SearchByMarkerFile(ctx context.Context, filename string, limit int, createdSince time.Time) ([]schema.RepositoryCandidate, error)

	// GetOrgRepos lists the repositories of an organization.
	GetOrgRepos(ctx context.Context, org string) ([]schema.RepositoryCandidate, error)

	// SearchByTopic searches repositories by topic tag.
	SearchByTopic(ctx context.Context, topic string) ([]schema.RepositoryCandidate, error)

	// Close releases the underlying HTTP resources.
	Close() error
}

// Warehouse defines the relational surface used by the pipeline: the raw
// and staging write paths plus the analytics extract/load contract.
type Warehouse interface {
	// StoreRawRepos appends raw API payloads to the raw layer.
	StoreRawRepos(ctx context.Context, candidates []schema.RepositoryCandidate, sourceLanguage, sourceType string) error

	// UpsertStaging writes one enriched repository to staging, overwriting
	// mutable fields on conflict by full name.
	UpsertStaging(ctx context.Context, repo *schema.EnrichedRepository) error

	// UpsertRenderEnrichment writes marker-detection data to the enrichment
	// staging table, keyed by full name.
	UpsertRenderEnrichment(ctx context.Context, repo *schema.EnrichedRepository) error

	// ExtractStaging reads qualifying staging rows: quality at or above the
	// policy threshold capped per language, plus the marker cohort.
	ExtractStaging(ctx context.Context, policy schema.ScoringPolicy) ([]schema.StagedRepo, error)

	// LoadAnalytics upserts dimension and fact rows for the run date.
	// Individual row failures are logged and skipped, never propagated.
	LoadAnalytics(ctx context.Context, rows []schema.RankedRepo, runDate time.Time) error

	// RecordRun appends one pipeline-execution stats row.
	RecordRun(ctx context.Context, summary schema.RunSummary, runAt time.Time) error

	// Close releases the connection pool.
	Close()
}
