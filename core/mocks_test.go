package core

import (
	"context"
	"sync"
	"time"

	"github.com/trenderhq/trender/schema"
)

// fakeAPI is a configurable in-memory RepoAPI for orchestration tests.
// Per-method hooks override the default empty responses.
type fakeAPI struct {
	searchFn       func(language string) []schema.RepositoryCandidate
	markerSearchFn func() []schema.RepositoryCandidate
	orgReposFn     func(org string) []schema.RepositoryCandidate
	topicSearchFn  func(topic string) []schema.RepositoryCandidate
	fileContents   map[string]string // keyed owner/repo/path
	readmes        map[string]string // keyed owner/repo
	readmeErr      error
}

func (f *fakeAPI) SearchRepositories(_ context.Context, language, _ string, _ time.Time) ([]schema.RepositoryCandidate, error) {
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(language), nil
}

func (f *fakeAPI) GetRepoDetails(_ context.Context, _, _ string) (*schema.RepositoryCandidate, error) {
	return nil, nil
}

func (f *fakeAPI) GetFileContents(_ context.Context, owner, repo, path string) (string, error) {
	return f.fileContents[owner+"/"+repo+"/"+path], nil
}

func (f *fakeAPI) FetchReadme(_ context.Context, owner, repo string) (string, error) {
	if f.readmeErr != nil {
		return "", f.readmeErr
	}
	return f.readmes[owner+"/"+repo], nil
}

func (f *fakeAPI) SearchByMarkerFile(_ context.Context, _ string, _ int, _ time.Time) ([]schema.RepositoryCandidate, error) {
	if f.markerSearchFn == nil {
		return nil, nil
	}
	return f.markerSearchFn(), nil
}

func (f *fakeAPI) GetOrgRepos(_ context.Context, org string) ([]schema.RepositoryCandidate, error) {
	if f.orgReposFn == nil {
		return nil, nil
	}
	return f.orgReposFn(org), nil
}

func (f *fakeAPI) SearchByTopic(_ context.Context, topic string) ([]schema.RepositoryCandidate, error) {
	if f.topicSearchFn == nil {
		return nil, nil
	}
	return f.topicSearchFn(topic), nil
}

func (f *fakeAPI) Close() error { return nil }

// fakeWarehouse records writes for assertion. Staging writes arrive from
// concurrent tasks, so all state is mutex-guarded.
type fakeWarehouse struct {
	mu sync.Mutex

	raw        []rawBatch
	staged     map[string]schema.EnrichedRepository
	enriched   map[string]schema.EnrichedRepository
	extractOut []schema.StagedRepo
	loaded     []schema.RankedRepo
	runs       []schema.RunSummary

	stagingErrFor map[string]error
}

type rawBatch struct {
	count      int
	language   string
	sourceType string
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{
		staged:        make(map[string]schema.EnrichedRepository),
		enriched:      make(map[string]schema.EnrichedRepository),
		stagingErrFor: make(map[string]error),
	}
}

func (w *fakeWarehouse) StoreRawRepos(_ context.Context, candidates []schema.RepositoryCandidate, sourceLanguage, sourceType string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.raw = append(w.raw, rawBatch{count: len(candidates), language: sourceLanguage, sourceType: sourceType})
	return nil
}

func (w *fakeWarehouse) UpsertStaging(_ context.Context, repo *schema.EnrichedRepository) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.stagingErrFor[repo.FullName]; err != nil {
		return err
	}
	w.staged[repo.FullName] = *repo
	return nil
}

func (w *fakeWarehouse) UpsertRenderEnrichment(_ context.Context, repo *schema.EnrichedRepository) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enriched[repo.FullName] = *repo
	return nil
}

func (w *fakeWarehouse) ExtractStaging(_ context.Context, _ schema.ScoringPolicy) ([]schema.StagedRepo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.extractOut, nil
}

func (w *fakeWarehouse) LoadAnalytics(_ context.Context, rows []schema.RankedRepo, _ time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loaded = append(w.loaded, rows...)
	return nil
}

func (w *fakeWarehouse) RecordRun(_ context.Context, summary schema.RunSummary, _ time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.runs = append(w.runs, summary)
	return nil
}

func (w *fakeWarehouse) Close() {}
