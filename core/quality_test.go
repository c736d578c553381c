package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/trenderhq/trender/schema"
)

// TestFreshness tests the freshness age buckets.
func TestFreshness(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		updatedAt time.Time
		expected  float64
	}{
		{
			name:      "updated today",
			updatedAt: now.Add(-12 * time.Hour),
			expected:  1.0,
		},
		{
			name:      "updated exactly one day ago",
			updatedAt: now.AddDate(0, 0, -1),
			expected:  1.0,
		},
		{
			name:      "updated within a week",
			updatedAt: now.AddDate(0, 0, -5),
			expected:  0.9,
		},
		{
			name:      "updated within a month",
			updatedAt: now.AddDate(0, 0, -8),
			expected:  0.7,
		},
		{
			name:      "updated within a quarter",
			updatedAt: now.AddDate(0, 0, -45),
			expected:  0.5,
		},
		{
			name:      "stale",
			updatedAt: now.AddDate(0, 0, -200),
			expected:  0.3,
		},
		{
			name:      "unknown update time",
			updatedAt: time.Time{},
			expected:  0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Freshness(tt.updatedAt, now), 0.0001)
		})
	}
}

// TestValidity tests the penalty deductions.
func TestValidity(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		repo     schema.RepositoryCandidate
		expected float64
	}{
		{
			name:     "clean record",
			repo:     schema.RepositoryCandidate{Language: "Go", Stars: 100, Forks: 20, CreatedAt: created, UpdatedAt: updated},
			expected: 1.0,
		},
		{
			name:     "negative stars",
			repo:     schema.RepositoryCandidate{Language: "Go", Stars: -1, Forks: 0, CreatedAt: created, UpdatedAt: updated},
			expected: 0.7,
		},
		{
			name:     "negative forks",
			repo:     schema.RepositoryCandidate{Language: "Go", Stars: 10, Forks: -1, CreatedAt: created, UpdatedAt: updated},
			expected: 0.8,
		},
		{
			name:     "fork-heavy and odd language",
			repo:     schema.RepositoryCandidate{Language: "Brainfuck", Stars: 10, Forks: 50, CreatedAt: created, UpdatedAt: updated},
			expected: 0.8,
		},
		{
			name:     "created after updated",
			repo:     schema.RepositoryCandidate{Language: "Go", Stars: 10, Forks: 2, CreatedAt: updated, UpdatedAt: created},
			expected: 0.8,
		},
		{
			name:     "missing language",
			repo:     schema.RepositoryCandidate{Language: "", Stars: 10, Forks: 2, CreatedAt: created, UpdatedAt: updated},
			expected: 0.9,
		},
		{
			name:     "marker tag is not penalized as unknown language",
			repo:     schema.RepositoryCandidate{Language: schema.MarkerLanguageTag, Stars: 10, Forks: 2, CreatedAt: created, UpdatedAt: updated},
			expected: 1.0,
		},
		{
			name: "all penalties stack",
			repo: schema.RepositoryCandidate{
				Language: "Brainfuck", Stars: -1, Forks: -1,
				CreatedAt: updated, UpdatedAt: created,
			},
			expected: 0.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Validity(&tt.repo), 0.0001)
		})
	}
}

// TestCompleteness tests the required/optional field weighting.
func TestCompleteness(t *testing.T) {
	now := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	full := &schema.EnrichedRepository{
		RepositoryCandidate: schema.RepositoryCandidate{
			FullName: "acme/app", URL: "https://github.com/acme/app", Language: "Go",
			Description: "an app", Stars: 10, Forks: 3, OpenIssues: 1,
			CreatedAt: now.AddDate(-1, 0, 0), UpdatedAt: now,
			Topics: []string{"web"},
		},
		Readme: "# App",
	}
	assert.InDelta(t, 1.0, Completeness(full), 0.0001)

	requiredOnly := &schema.EnrichedRepository{
		RepositoryCandidate: schema.RepositoryCandidate{
			FullName: "acme/app", URL: "https://github.com/acme/app", Language: "Go",
			Stars: 10, CreatedAt: now.AddDate(-1, 0, 0), UpdatedAt: now,
		},
	}
	assert.InDelta(t, 0.7, Completeness(requiredOnly), 0.0001)

	empty := &schema.EnrichedRepository{}
	assert.InDelta(t, 0.0, Completeness(empty), 0.0001)
}

// TestDataQuality tests the blended score end to end.
func TestDataQuality(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	// Required fields only, fresh and fully valid:
	// 0.4*0.7 + 0.3*1.0 + 0.3*1.0 = 0.88
	repo := &schema.EnrichedRepository{
		RepositoryCandidate: schema.RepositoryCandidate{
			FullName: "acme/app", URL: "https://github.com/acme/app", Language: "Go",
			Stars: 10, CreatedAt: now.AddDate(-1, 0, 0), UpdatedAt: now.Add(-6 * time.Hour),
		},
	}
	assert.InDelta(t, 0.88, DataQuality(repo, now), 0.0001)

	// One optional field present nudges completeness by 0.3/5.
	// 0.4*(0.7+0.06) + 0.6 = 0.904, rounded to 0.9.
	repo.Forks = 2
	assert.InDelta(t, 0.9, DataQuality(repo, now), 0.0001)
}
