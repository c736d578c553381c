package schema

import "time"

// Render project categories.
const (
	CategoryOfficial  = "official"
	CategoryEmployee  = "employee"
	CategoryBlueprint = "blueprint"
	CategoryCommunity = "community"
)

// MarkerLanguageTag is the staging language tag for repositories that were
// discovered through the marker-file search and report no primary language.
// Extraction treats rows carrying this tag as the marker-only cohort.
const MarkerLanguageTag = "Render"

// API client policy constants.
const (
	RateLimitFloor        = 100             // remaining-quota low-water mark
	RateLimitSafetyMargin = 5 * time.Second // extra sleep past the reset time
	MaxAPIRetries         = 3
	RetryBaseDelay        = 1 * time.Second
	RequestTimeout        = 30 * time.Second
	DefaultReadmeMaxChars = 5000
)

// Pipeline defaults. All of these are viper-overridable; the constants are
// the single source for the default values.
const (
	DefaultChunkSize        = 10
	DefaultPerRunRepoLimit  = 100
	DefaultMarkerFile       = "render.yaml"
	DefaultUpdatedWindow    = 30 // days
	DefaultMarkerSearchMax  = 100
	DefaultQualityThreshold = 0.70
	DefaultOverallLimit     = 100
	DefaultPerLanguageLimit = 50
)

// DefaultLanguages are the languages analyzed when none are configured.
var DefaultLanguages = []string{"Python", "TypeScript", "Go"}

// OfficialOrgs is the allowlist of organizations whose repositories are
// categorized as official.
var OfficialOrgs = []string{"render-examples", "render"}

// BlueprintTopics mark a repository as a blueprint project.
var BlueprintTopics = []string{"render-blueprints", "render-blueprint"}

// ValidLanguages is the set of languages the validity scorer recognizes.
var ValidLanguages = map[string]bool{
	"Python":     true,
	"TypeScript": true,
	"JavaScript": true,
	"Go":         true,
	"Java":       true,
	"C++":        true,
	"C":          true,
	"Ruby":       true,
	"PHP":        true,
	"C#":         true,
	"Rust":       true,
	"Swift":      true,
}

// ScoringPolicy holds the tunable ranking constants. The momentum formula
// has changed several times; keeping the weights here means the next change
// is a one-line edit rather than a hunt through the transform.
type ScoringPolicy struct {
	RecencyWeight    float64
	StarsWeight      float64
	QualityThreshold float64
	OverallLimit     int
	PerLanguageLimit int
}

// DefaultScoringPolicy returns the latest-observed ranking policy:
// momentum is 70% recency decay and 30% cohort-normalized stars.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		RecencyWeight:    0.7,
		StarsWeight:      0.3,
		QualityThreshold: DefaultQualityThreshold,
		OverallLimit:     DefaultOverallLimit,
		PerLanguageLimit: DefaultPerLanguageLimit,
	}
}
