package warehouse

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/trenderhq/trender/internal/contract"
	"github.com/trenderhq/trender/schema"
)

// Store implements the Warehouse contract over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

var _ contract.Warehouse = (*Store)(nil) // Compile-time check

// New wraps an established pool in a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		log:  logrus.WithField("component", "warehouse"),
	}
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// StoreRawRepos appends one raw row per candidate, the full API payload as
// JSONB. The raw layer is append-only; reruns on the same day produce new
// rows rather than overwriting.
func (s *Store) StoreRawRepos(ctx context.Context, candidates []schema.RepositoryCandidate, sourceLanguage, sourceType string) error {
	for i := range candidates {
		payload, err := json.Marshal(&candidates[i])
		if err != nil {
			return fmt.Errorf("marshal raw payload for %s: %w", candidates[i].FullName, err)
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO raw_github_repos
				(repo_full_name, api_response, source_language, source_type)
			VALUES ($1, $2, $3, $4)
		`, candidates[i].FullName, payload, sourceLanguage, sourceType)
		if err != nil {
			return fmt.Errorf("insert raw row for %s: %w", candidates[i].FullName, err)
		}
	}
	return nil
}
