package core

import (
	"math"
	"sort"
	"time"

	"github.com/trenderhq/trender/schema"
)

// RecencyScore is a stepped decay over the days since the last update.
// The steps mirror how sharply attention falls off a project: anything
// touched in the last two weeks is fully current, anything untouched for a
// year is effectively dormant.
func RecencyScore(updatedAt, now time.Time) float64 {
	if updatedAt.IsZero() {
		return 0.01
	}
	days := now.Sub(updatedAt).Hours() / 24

	switch {
	case days <= 14:
		return 1.0
	case days <= 30:
		return 0.85
	case days <= 60:
		return 0.60
	case days <= 90:
		return 0.35
	case days <= 180:
		return 0.15
	case days <= 365:
		return 0.05
	default:
		return 0.01
	}
}

// NormalizedStars scales a star count against the cohort maximum. A cohort
// max below one is clamped so empty cohorts never divide by zero.
func NormalizedStars(stars, cohortMax int) float64 {
	if cohortMax < 1 {
		cohortMax = 1
	}
	if stars < 0 {
		stars = 0
	}
	norm := float64(stars) / float64(cohortMax)
	return math.Min(norm, 1.0)
}

// Momentum blends recency and normalized stars per the policy weights,
// rounded to four decimals.
func Momentum(recency, normStars float64, policy schema.ScoringPolicy) float64 {
	m := policy.RecencyWeight*recency + policy.StarsWeight*normStars
	return math.Round(m*10000) / 10000
}

// markerCohort reports whether a staged row belongs to the marker cohort.
// These rows are normalized against their own star maximum so a handful of
// giant general-population repos cannot flatten their scores.
func markerCohort(row *schema.StagedRepo) bool {
	return row.UsesRender || row.Language == schema.MarkerLanguageTag
}

// TransformAndRank computes momentum for every extracted row and assigns
// rank ordinals: an overall rank capped at the policy's overall limit and a
// per-language rank capped at the per-language limit. Rows that receive
// neither rank are dropped. Ties in momentum keep extract order, which is
// star-descending, so equal-momentum rows rank by stars.
func TransformAndRank(rows []schema.StagedRepo, policy schema.ScoringPolicy, now time.Time) []schema.RankedRepo {
	if len(rows) == 0 {
		return nil
	}

	var generalMax, markerMax int
	for i := range rows {
		if markerCohort(&rows[i]) {
			if rows[i].Stars > markerMax {
				markerMax = rows[i].Stars
			}
		} else if rows[i].Stars > generalMax {
			generalMax = rows[i].Stars
		}
	}

	ranked := make([]schema.RankedRepo, 0, len(rows))
	for i := range rows {
		cohortMax := generalMax
		if markerCohort(&rows[i]) {
			cohortMax = markerMax
		}
		recency := RecencyScore(rows[i].UpdatedAt, now)
		normStars := NormalizedStars(rows[i].Stars, cohortMax)
		ranked = append(ranked, schema.RankedRepo{
			StagedRepo:      rows[i],
			RecencyScore:    recency,
			NormalizedStars: normStars,
			MomentumScore:   Momentum(recency, normStars, policy),
		})
	}

	// Audit ordinal by raw stars, independent of momentum.
	byStars := make([]*schema.RankedRepo, len(ranked))
	for i := range ranked {
		byStars[i] = &ranked[i]
	}
	sort.SliceStable(byStars, func(i, j int) bool { return byStars[i].Stars > byStars[j].Stars })
	for i, r := range byStars {
		r.StarRank = i + 1
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].MomentumScore > ranked[j].MomentumScore })

	perLanguage := make(map[string]int)
	out := make([]schema.RankedRepo, 0, len(ranked))
	for i := range ranked {
		if i < policy.OverallLimit {
			ranked[i].RankOverall = i + 1
		}
		lang := ranked[i].Language
		if perLanguage[lang] < policy.PerLanguageLimit {
			perLanguage[lang]++
			ranked[i].RankInLanguage = perLanguage[lang]
		}
		if ranked[i].RankOverall > 0 || ranked[i].RankInLanguage > 0 {
			out = append(out, ranked[i])
		}
	}
	return out
}
