// Package schema defines the value objects and policy constants shared
// across the trender pipeline.
package schema

import "time"

// RepositoryCandidate is a repository record as returned by a search query,
// before enrichment. Optional attributes are absent when zero-valued
// (empty string, zero time, empty slice).
type RepositoryCandidate struct {
	FullName    string    `json:"full_name"`
	URL         string    `json:"html_url"`
	Language    string    `json:"language"`
	Description string    `json:"description"`
	Stars       int       `json:"stargazers_count"`
	Forks       int       `json:"forks_count"`
	OpenIssues  int       `json:"open_issues_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Topics      []string  `json:"topics"`
}

// Owner returns the owner half of the full name, or "" when the
// full name is not of the form owner/name.
func (c *RepositoryCandidate) Owner() string {
	for i := 0; i < len(c.FullName); i++ {
		if c.FullName[i] == '/' {
			return c.FullName[:i]
		}
	}
	return ""
}

// Name returns the repository half of the full name, or "" when the
// full name is not of the form owner/name.
func (c *RepositoryCandidate) Name() string {
	for i := 0; i < len(c.FullName); i++ {
		if c.FullName[i] == '/' {
			return c.FullName[i+1:]
		}
	}
	return ""
}

// RenderDetection is the structured result of marker-file detection for a
// single repository. The zero value means "not in use".
type RenderDetection struct {
	UsesRender         bool
	Category           string
	Services           []string
	Databases          []string
	ServiceCount       int
	ComplexityScore    int
	HasBlueprintButton bool
	BlueprintQuality   int
	DocumentationScore int
}

// EnrichedRepository is a candidate augmented with README content, marker
// detection and a data-quality score. Written once to staging per run.
type EnrichedRepository struct {
	RepositoryCandidate

	Readme       string
	Render       RenderDetection
	QualityScore float64
}

// RepoSummary is the minimal per-repository payload returned by the batch
// orchestrator for successful analyses. It intentionally omits bulk
// content like READMEs.
type RepoSummary struct {
	FullName string
	Language string
	Stars    int
}

// RunSummary is the result of one pipeline execution.
type RunSummary struct {
	ReposProcessed int      `json:"repos_processed"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
	Languages      []string `json:"languages"`
	Success        bool     `json:"success"`
}

// StagedRepo is one row extracted from the staging layer, joined with its
// render enrichment when present.
type StagedRepo struct {
	FullName           string
	URL                string
	Language           string
	Description        string
	Stars              int
	Forks              int
	OpenIssues         int
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Readme             string
	UsesRender         bool
	QualityScore       float64
	RenderCategory     string
	RenderServices     []string
	RenderComplexity   int
	HasBlueprintButton bool
	ServiceCount       int
}

// RankedRepo is a staged row after the transform phase: momentum computed
// and rank ordinals assigned. A rank of zero means "not ranked".
type RankedRepo struct {
	StagedRepo

	RecencyScore    float64
	NormalizedStars float64
	MomentumScore   float64
	StarRank        int // audit ordinal by stars descending within the extract
	RankOverall     int
	RankInLanguage  int
}
