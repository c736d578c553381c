package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trenderhq/trender/schema"
)

// TestPipelineRun tests the full orchestration over fakes: discovery,
// enrichment, extract, transform and load.
func TestPipelineRun(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	markerRepo := candidate("render-examples/demo", 80)
	markerRepo.Language = "" // code search often omits the language

	api := &fakeAPI{
		searchFn: func(language string) []schema.RepositoryCandidate {
			if language != "Go" {
				return nil
			}
			return []schema.RepositoryCandidate{candidate("acme/app", 120)}
		},
		markerSearchFn: func() []schema.RepositoryCandidate {
			return []schema.RepositoryCandidate{markerRepo}
		},
		orgReposFn: func(org string) []schema.RepositoryCandidate {
			if org != "render-examples" {
				return nil
			}
			// Already discovered by the marker search; must be deduplicated.
			return []schema.RepositoryCandidate{markerRepo}
		},
	}

	store := newFakeWarehouse()
	store.extractOut = []schema.StagedRepo{
		stagedRow("acme/app", "Go", 120, now.AddDate(0, 0, -2)),
		stagedRow("render-examples/demo", schema.MarkerLanguageTag, 80, now.AddDate(0, 0, -2)),
	}

	pipeline := NewPipeline(api, store, testConfig())
	pipeline.now = func() time.Time { return now }
	pipeline.analyzer.now = pipeline.now

	summary, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, 2, summary.ReposProcessed)
	assert.Equal(t, []string{"Go"}, summary.Languages)

	// Raw layer saw the language batch and both marker-source batches.
	require.Len(t, store.raw, 3)
	assert.Equal(t, rawBatch{count: 1, language: "Go", sourceType: "language_search"}, store.raw[0])
	assert.Equal(t, rawBatch{count: 1, language: schema.MarkerLanguageTag, sourceType: "marker_search"}, store.raw[1])
	assert.Equal(t, rawBatch{count: 1, language: schema.MarkerLanguageTag, sourceType: "official_org"}, store.raw[2])

	// The marker repo without a language was tagged before analysis.
	staged, ok := store.staged["render-examples/demo"]
	require.True(t, ok)
	assert.Equal(t, schema.MarkerLanguageTag, staged.Language)

	// Both extracted rows ranked and loaded.
	require.Len(t, store.loaded, 2)
	assert.Equal(t, "acme/app", store.loaded[0].FullName)
	assert.Equal(t, 1, store.loaded[0].RankOverall)

	// One stats row recorded with the final summary.
	require.Len(t, store.runs, 1)
	assert.True(t, store.runs[0].Success)
}

// TestPipelineRunDevLimit tests the per-run candidate cap.
func TestPipelineRunDevLimit(t *testing.T) {
	api := &fakeAPI{
		searchFn: func(string) []schema.RepositoryCandidate {
			out := make([]schema.RepositoryCandidate, 0, 5)
			for _, name := range []string{"a", "b", "c", "d", "e"} {
				out = append(out, candidate("acme/"+name, 1))
			}
			return out
		},
	}
	store := newFakeWarehouse()

	cfg := testConfig()
	cfg.PerRunRepoLimit = 2
	pipeline := NewPipeline(api, store, cfg)

	summary, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ReposProcessed)

	// The raw layer keeps the full search response; only analysis is capped.
	require.NotEmpty(t, store.raw)
	assert.Equal(t, 5, store.raw[0].count)
	assert.Len(t, store.staged, 2)
}

// TestPipelineRunEmptyDiscovery tests that an empty discovery still
// completes and records a stats row.
func TestPipelineRunEmptyDiscovery(t *testing.T) {
	pipelineStore := newFakeWarehouse()
	pipeline := NewPipeline(&fakeAPI{}, pipelineStore, testConfig())

	summary, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, 0, summary.ReposProcessed)
	require.Len(t, pipelineStore.runs, 1)
}
