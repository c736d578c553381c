package core

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trenderhq/trender/internal/contract"
	"github.com/trenderhq/trender/schema"
)

// Raw-layer source types.
const (
	sourceLanguageSearch = "language_search"
	sourceMarkerSearch   = "marker_search"
	sourceOfficialOrg    = "official_org"
	sourceTopicSearch    = "topic_search"
)

// Pipeline runs one end-to-end collection: discovery, enrichment, extract,
// transform and load.
type Pipeline struct {
	api      contract.RepoAPI
	store    contract.Warehouse
	cfg      *contract.Config
	analyzer *Analyzer
	log      *logrus.Entry

	now func() time.Time
}

// NewPipeline wires a Pipeline over the given API and warehouse.
func NewPipeline(api contract.RepoAPI, store contract.Warehouse, cfg *contract.Config) *Pipeline {
	return &Pipeline{
		api:      api,
		store:    store,
		cfg:      cfg,
		analyzer: NewAnalyzer(api, store, cfg),
		log:      logrus.WithField("component", "pipeline"),
		now:      time.Now,
	}
}

// Run executes one full pipeline pass and returns its summary. Discovery
// and enrichment failures degrade per language or per repository; only
// infrastructure failures (warehouse extract or load plumbing, bad
// credentials) abort the run.
func (p *Pipeline) Run(ctx context.Context) (schema.RunSummary, error) {
	started := p.now()
	summary := schema.RunSummary{Languages: p.cfg.Languages}

	seen := make(map[string]bool)
	processed := 0

	for _, language := range p.cfg.Languages {
		n, err := p.collectLanguage(ctx, language, seen)
		if err != nil {
			return p.finish(ctx, summary, started, fmt.Errorf("collect %s: %w", language, err))
		}
		processed += n
	}

	n, err := p.collectMarkerEcosystem(ctx, seen)
	if err != nil {
		return p.finish(ctx, summary, started, fmt.Errorf("collect marker ecosystem: %w", err))
	}
	processed += n
	summary.ReposProcessed = processed

	staged, err := p.store.ExtractStaging(ctx, p.cfg.Policy)
	if err != nil {
		return p.finish(ctx, summary, started, fmt.Errorf("extract staging: %w", err))
	}
	p.log.WithField("rows", len(staged)).Info("Extracted staging rows")

	runDate := p.now()
	ranked := TransformAndRank(staged, p.cfg.Policy, runDate)
	p.log.WithField("rows", len(ranked)).Info("Ranked repositories")

	if err := p.store.LoadAnalytics(ctx, ranked, runDate); err != nil {
		return p.finish(ctx, summary, started, fmt.Errorf("load analytics: %w", err))
	}

	summary.Success = true
	return p.finish(ctx, summary, started, nil)
}

// finish stamps elapsed time and records the run. Recording is best-effort;
// a stats write failure never masks the run's own outcome.
func (p *Pipeline) finish(ctx context.Context, summary schema.RunSummary, started time.Time, runErr error) (schema.RunSummary, error) {
	summary.ElapsedSeconds = p.now().Sub(started).Seconds()
	if err := p.store.RecordRun(ctx, summary, started); err != nil {
		p.log.WithError(err).Warn("Run stats write failed")
	}
	return summary, runErr
}

// collectLanguage discovers and enriches one language's candidates and
// returns the number analyzed successfully.
func (p *Pipeline) collectLanguage(ctx context.Context, language string, seen map[string]bool) (int, error) {
	var since time.Time
	if p.cfg.UpdatedWindow > 0 {
		since = p.now().AddDate(0, 0, -p.cfg.UpdatedWindow)
	}

	candidates, err := p.api.SearchRepositories(ctx, language, "stars", since)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		p.log.WithField("language", language).Warn("Search returned no candidates")
		return 0, nil
	}

	if err := p.store.StoreRawRepos(ctx, candidates, language, sourceLanguageSearch); err != nil {
		return 0, err
	}

	candidates = dedupe(candidates, seen)
	if p.cfg.PerRunRepoLimit > 0 && len(candidates) > p.cfg.PerRunRepoLimit {
		candidates = candidates[:p.cfg.PerRunRepoLimit]
	}

	p.log.WithFields(logrus.Fields{"language": language, "candidates": len(candidates)}).Info("Analyzing language cohort")
	return countSuccesses(p.analyzer.AnalyzeBatch(ctx, candidates)), nil
}

// collectMarkerEcosystem discovers the marker-file cohort: the code search
// by filename, the official organizations and the blueprint topics, merged
// and deduplicated against everything discovered so far. Candidates with no
// reported language are tagged with the marker language so validation and
// extraction keep them.
func (p *Pipeline) collectMarkerEcosystem(ctx context.Context, seen map[string]bool) (int, error) {
	var createdSince time.Time
	if p.cfg.MarkerCreatedDays > 0 {
		createdSince = p.now().AddDate(0, 0, -p.cfg.MarkerCreatedDays)
	}

	var merged []schema.RepositoryCandidate

	fromMarker, err := p.api.SearchByMarkerFile(ctx, p.cfg.MarkerFile, p.cfg.MarkerSearchMax, createdSince)
	if err != nil {
		return 0, err
	}
	if err := p.storeAndMerge(ctx, &merged, fromMarker, sourceMarkerSearch, seen); err != nil {
		return 0, err
	}

	for _, org := range schema.OfficialOrgs {
		fromOrg, err := p.api.GetOrgRepos(ctx, org)
		if err != nil {
			return 0, err
		}
		if err := p.storeAndMerge(ctx, &merged, fromOrg, sourceOfficialOrg, seen); err != nil {
			return 0, err
		}
	}

	for _, topic := range schema.BlueprintTopics {
		fromTopic, err := p.api.SearchByTopic(ctx, topic)
		if err != nil {
			return 0, err
		}
		if err := p.storeAndMerge(ctx, &merged, fromTopic, sourceTopicSearch, seen); err != nil {
			return 0, err
		}
	}

	for i := range merged {
		if merged[i].Language == "" {
			merged[i].Language = schema.MarkerLanguageTag
		}
	}

	p.log.WithField("candidates", len(merged)).Info("Analyzing marker ecosystem cohort")
	return countSuccesses(p.analyzer.AnalyzeBatch(ctx, merged)), nil
}

// storeAndMerge appends a discovery batch to the raw layer and merges the
// unseen candidates into the working set.
func (p *Pipeline) storeAndMerge(ctx context.Context, merged *[]schema.RepositoryCandidate, batch []schema.RepositoryCandidate, sourceType string, seen map[string]bool) error {
	if len(batch) == 0 {
		return nil
	}
	if err := p.store.StoreRawRepos(ctx, batch, schema.MarkerLanguageTag, sourceType); err != nil {
		return err
	}
	*merged = append(*merged, dedupe(batch, seen)...)
	return nil
}

// dedupe filters candidates already present in seen, marking the survivors.
func dedupe(candidates []schema.RepositoryCandidate, seen map[string]bool) []schema.RepositoryCandidate {
	out := make([]schema.RepositoryCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.FullName == "" || seen[c.FullName] {
			continue
		}
		seen[c.FullName] = true
		out = append(out, c)
	}
	return out
}

func countSuccesses(results []TaskResult) int {
	n := 0
	for _, r := range results {
		if r.Status == TaskSuccess {
			n++
		}
	}
	return n
}
