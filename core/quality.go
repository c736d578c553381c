// Package core implements the analysis pipeline: data-quality scoring,
// marker detection, momentum ranking and the batch orchestrator.
package core

import (
	"math"
	"time"

	"github.com/trenderhq/trender/schema"
)

// Completeness weighting. Required fields carry most of the signal; the
// optional fields only top up an otherwise complete record.
const (
	requiredFieldWeight = 0.7
	optionalFieldWeight = 0.3
)

// DataQuality scores one enriched repository on a 0..1 scale, blending
// completeness (0.4), freshness (0.3) and validity (0.3). The result is
// rounded to two decimals so threshold comparisons are stable across runs.
func DataQuality(repo *schema.EnrichedRepository, now time.Time) float64 {
	score := 0.4*Completeness(repo) + 0.3*Freshness(repo.UpdatedAt, now) + 0.3*Validity(&repo.RepositoryCandidate)
	return math.Round(score*100) / 100
}

// Completeness measures attribute coverage. The required fields are the
// ones every downstream consumer depends on; missing any of them degrades
// the record sharply.
func Completeness(repo *schema.EnrichedRepository) float64 {
	required := []bool{
		repo.FullName != "",
		repo.URL != "",
		repo.Language != "",
		repo.Stars > 0,
		!repo.CreatedAt.IsZero(),
		!repo.UpdatedAt.IsZero(),
	}
	optional := []bool{
		repo.Description != "",
		repo.Forks > 0,
		repo.OpenIssues > 0,
		len(repo.Topics) > 0,
		repo.Readme != "",
	}

	return requiredFieldWeight*fractionPresent(required) + optionalFieldWeight*fractionPresent(optional)
}

func fractionPresent(fields []bool) float64 {
	present := 0
	for _, ok := range fields {
		if ok {
			present++
		}
	}
	return float64(present) / float64(len(fields))
}

// Freshness buckets the age of the last update. An unknown update time
// scores the neutral midpoint rather than zero.
func Freshness(updatedAt, now time.Time) float64 {
	if updatedAt.IsZero() {
		return 0.5
	}
	days := now.Sub(updatedAt).Hours() / 24

	switch {
	case days <= 1:
		return 1.0
	case days <= 7:
		return 0.9
	case days <= 30:
		return 0.7
	case days <= 90:
		return 0.5
	default:
		return 0.3
	}
}

// Validity applies penalty deductions for internally inconsistent records,
// floored at zero.
func Validity(repo *schema.RepositoryCandidate) float64 {
	score := 1.0

	if repo.Stars < 0 {
		score -= 0.3
	}
	if repo.Forks < 0 {
		score -= 0.2
	} else if repo.Stars >= 0 && repo.Forks > 2*repo.Stars {
		// More forks than twice the stars is a strong bot or mirror signal.
		score -= 0.1
	}
	if !repo.CreatedAt.IsZero() && !repo.UpdatedAt.IsZero() && repo.CreatedAt.After(repo.UpdatedAt) {
		score -= 0.2
	}
	// Missing counts the same as unrecognized. The marker tag is synthetic
	// but deliberate, so it is exempt.
	if repo.Language != schema.MarkerLanguageTag && !schema.ValidLanguages[repo.Language] {
		score -= 0.1
	}

	return math.Max(score, 0)
}
