package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trenderhq/trender/internal/contract"
	"github.com/trenderhq/trender/schema"
)

// TaskStatus is the outcome of one repository analysis task.
type TaskStatus int

const (
	// TaskSuccess means the repository was enriched and staged.
	TaskSuccess TaskStatus = iota
	// TaskSkipped means the candidate failed validation and was never analyzed.
	TaskSkipped
	// TaskFailed means the analysis raised an unexpected error; the rest of
	// the chunk is unaffected.
	TaskFailed
)

// TaskResult is the per-repository outcome of a batch.
type TaskResult struct {
	Status  TaskStatus
	Summary schema.RepoSummary
}

// Analyzer runs the enrichment stage: README fetch, marker detection,
// quality scoring and the staging write, fanned out over fixed-size chunks.
type Analyzer struct {
	api   contract.RepoAPI
	store contract.Warehouse
	cfg   *contract.Config
	log   *logrus.Entry

	now func() time.Time
}

// NewAnalyzer creates an Analyzer over the given API and warehouse.
func NewAnalyzer(api contract.RepoAPI, store contract.Warehouse, cfg *contract.Config) *Analyzer {
	return &Analyzer{
		api:   api,
		store: store,
		cfg:   cfg,
		log:   logrus.WithField("component", "analyzer"),
		now:   time.Now,
	}
}

// validateCandidate rejects records that cannot be analyzed: a full name
// without an owner, a missing language, or absent timestamps.
func validateCandidate(c *schema.RepositoryCandidate) bool {
	if !strings.Contains(c.FullName, "/") {
		return false
	}
	if c.Language == "" {
		return false
	}
	if c.CreatedAt.IsZero() || c.UpdatedAt.IsZero() {
		return false
	}
	return true
}

// AnalyzeBatch enriches candidates in chunks. Chunks run sequentially so
// each one settles its API budget before the next begins; within a chunk
// every repository is analyzed concurrently. A failing task is logged and
// absorbed, never fatal to the batch.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, candidates []schema.RepositoryCandidate) []TaskResult {
	results := make([]TaskResult, len(candidates))

	for start := 0; start < len(candidates); start += a.cfg.ChunkSize {
		end := min(start+a.cfg.ChunkSize, len(candidates))
		chunk := candidates[start:end]

		var wg sync.WaitGroup
		for i := range chunk {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[start+idx] = a.analyzeOne(ctx, &chunk[idx])
			}(i)
		}
		wg.Wait()

		var ok, skipped, failed int
		for _, r := range results[start:end] {
			switch r.Status {
			case TaskSuccess:
				ok++
			case TaskSkipped:
				skipped++
			case TaskFailed:
				failed++
			}
		}
		a.log.WithFields(logrus.Fields{
			"chunk":   start / a.cfg.ChunkSize,
			"size":    len(chunk),
			"ok":      ok,
			"skipped": skipped,
			"failed":  failed,
		}).Info("Chunk complete")
	}

	return results
}

// analyzeOne runs the full enrichment for a single repository. A panic in
// any stage is converted to a failed result so one pathological record
// cannot take down its chunk.
func (a *Analyzer) analyzeOne(ctx context.Context, cand *schema.RepositoryCandidate) (result TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithFields(logrus.Fields{"repo": cand.FullName, "panic": r}).Error("Analysis task panicked")
			result = TaskResult{Status: TaskFailed}
		}
	}()

	if !validateCandidate(cand) {
		a.log.WithField("repo", cand.FullName).Debug("Candidate failed validation, skipping")
		return TaskResult{Status: TaskSkipped}
	}

	enriched := &schema.EnrichedRepository{RepositoryCandidate: *cand}

	// README fetch and marker detection hit disjoint endpoints; run them
	// concurrently and join before the README-derived fields are patched in.
	var wg sync.WaitGroup
	var readme string
	var readmeErr, detectErr error
	var detection schema.RenderDetection

	wg.Add(2)
	go func() {
		defer wg.Done()
		readme, readmeErr = a.api.FetchReadme(ctx, cand.Owner(), cand.Name())
	}()
	go func() {
		defer wg.Done()
		detection, detectErr = a.DetectUsage(ctx, cand)
	}()
	wg.Wait()

	if readmeErr != nil {
		a.log.WithError(readmeErr).WithField("repo", cand.FullName).Error("README fetch failed")
		return TaskResult{Status: TaskFailed}
	}
	if detectErr != nil {
		a.log.WithError(detectErr).WithField("repo", cand.FullName).Error("Marker detection failed")
		return TaskResult{Status: TaskFailed}
	}

	enriched.Readme = readme
	enriched.Render = detection
	FinalizeDetection(enriched)
	enriched.QualityScore = DataQuality(enriched, a.now())

	if err := a.store.UpsertStaging(ctx, enriched); err != nil {
		a.log.WithError(err).WithField("repo", cand.FullName).Error("Staging write failed")
		return TaskResult{Status: TaskFailed}
	}
	if enriched.Render.UsesRender {
		if err := a.store.UpsertRenderEnrichment(ctx, enriched); err != nil {
			a.log.WithError(err).WithField("repo", cand.FullName).Error("Enrichment write failed")
			return TaskResult{Status: TaskFailed}
		}
	}

	return TaskResult{
		Status: TaskSuccess,
		Summary: schema.RepoSummary{
			FullName: cand.FullName,
			Language: cand.Language,
			Stars:    cand.Stars,
		},
	}
}
