package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trenderhq/trender/internal/contract"
	"github.com/trenderhq/trender/schema"
)

func testConfig() *contract.Config {
	return &contract.Config{
		Languages:       []string{"Go"},
		PerRunRepoLimit: 100,
		ChunkSize:       schema.DefaultChunkSize,
		MarkerFile:      schema.DefaultMarkerFile,
		ReadmeMaxChars:  schema.DefaultReadmeMaxChars,
		Policy:          schema.DefaultScoringPolicy(),
	}
}

func candidate(name string, stars int) schema.RepositoryCandidate {
	now := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	return schema.RepositoryCandidate{
		FullName:  name,
		URL:       "https://github.com/" + name,
		Language:  "Go",
		Stars:     stars,
		CreatedAt: now.AddDate(-1, 0, 0),
		UpdatedAt: now.AddDate(0, 0, -1),
	}
}

// TestAnalyzeBatchSuccess tests the happy path through enrichment.
func TestAnalyzeBatchSuccess(t *testing.T) {
	api := &fakeAPI{
		readmes: map[string]string{"acme/app": "# App\nDeploy on render.com/deploy today"},
		fileContents: map[string]string{
			"acme/app/render.yaml": "services:\n  - type: web\n    name: api\n",
		},
	}
	store := newFakeWarehouse()
	analyzer := NewAnalyzer(api, store, testConfig())

	results := analyzer.AnalyzeBatch(context.Background(), []schema.RepositoryCandidate{candidate("acme/app", 42)})
	require.Len(t, results, 1)
	assert.Equal(t, TaskSuccess, results[0].Status)
	assert.Equal(t, "acme/app", results[0].Summary.FullName)
	assert.Equal(t, 42, results[0].Summary.Stars)

	staged, ok := store.staged["acme/app"]
	require.True(t, ok)
	assert.True(t, staged.Render.UsesRender)
	assert.True(t, staged.Render.HasBlueprintButton)
	assert.Equal(t, []string{"web"}, staged.Render.Services)
	assert.Greater(t, staged.QualityScore, 0.0)

	// Marker-positive repos also land in the enrichment table.
	_, ok = store.enriched["acme/app"]
	assert.True(t, ok)
}

// TestAnalyzeBatchSkipsInvalid tests that malformed candidates are skipped
// without touching the warehouse.
func TestAnalyzeBatchSkipsInvalid(t *testing.T) {
	store := newFakeWarehouse()
	analyzer := NewAnalyzer(&fakeAPI{}, store, testConfig())

	noOwner := candidate("solo", 1)
	noLanguage := candidate("acme/nolang", 1)
	noLanguage.Language = ""
	noTimestamps := candidate("acme/notime", 1)
	noTimestamps.UpdatedAt = time.Time{}

	results := analyzer.AnalyzeBatch(context.Background(), []schema.RepositoryCandidate{noOwner, noLanguage, noTimestamps})
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, TaskSkipped, r.Status)
	}
	assert.Empty(t, store.staged)
}

// TestAnalyzeBatchPartialFailure tests that one failing task leaves the
// rest of its chunk intact.
func TestAnalyzeBatchPartialFailure(t *testing.T) {
	store := newFakeWarehouse()
	store.stagingErrFor["acme/app3"] = errors.New("connection reset")
	analyzer := NewAnalyzer(&fakeAPI{}, store, testConfig())

	candidates := make([]schema.RepositoryCandidate, 0, 10)
	for _, name := range []string{"app0", "app1", "app2", "app3", "app4", "app5", "app6", "app7", "app8", "app9"} {
		candidates = append(candidates, candidate("acme/"+name, 5))
	}

	results := analyzer.AnalyzeBatch(context.Background(), candidates)
	require.Len(t, results, 10)

	var ok, failed int
	for _, r := range results {
		switch r.Status {
		case TaskSuccess:
			ok++
		case TaskFailed:
			failed++
		}
	}
	assert.Equal(t, 9, ok)
	assert.Equal(t, 1, failed)
	assert.Len(t, store.staged, 9)
}

// TestAnalyzeBatchChunking tests that results keep input order across
// chunk boundaries.
func TestAnalyzeBatchChunking(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkSize = 3
	store := newFakeWarehouse()
	analyzer := NewAnalyzer(&fakeAPI{}, store, cfg)

	candidates := make([]schema.RepositoryCandidate, 0, 7)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		candidates = append(candidates, candidate("acme/"+name, 1))
	}

	results := analyzer.AnalyzeBatch(context.Background(), candidates)
	require.Len(t, results, 7)
	for i, r := range results {
		assert.Equal(t, candidates[i].FullName, r.Summary.FullName)
	}
	assert.Len(t, store.staged, 7)
}

// TestAnalyzeBatchReadmeFailure tests that a hard README error fails only
// the affected task.
func TestAnalyzeBatchReadmeFailure(t *testing.T) {
	api := &fakeAPI{readmeErr: errors.New("bad credentials")}
	store := newFakeWarehouse()
	analyzer := NewAnalyzer(api, store, testConfig())

	results := analyzer.AnalyzeBatch(context.Background(), []schema.RepositoryCandidate{candidate("acme/app", 1)})
	require.Len(t, results, 1)
	assert.Equal(t, TaskFailed, results[0].Status)
}
