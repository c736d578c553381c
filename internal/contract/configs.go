package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/trenderhq/trender/schema"
)

// tokenPrefixes are the credential formats GitHub issues for PATs and
// OAuth tokens. Anything else is rejected before the first request.
var tokenPrefixes = []string{"ghp_", "gho_", "github_pat_"}

// Config is the validated runtime configuration for one pipeline run.
type Config struct {
	GitHubToken string
	DatabaseURL string

	PoolMinConns int32
	PoolMaxConns int32

	Languages       []string
	PerRunRepoLimit int
	ChunkSize       int
	UpdatedWindow   int // days; restricts the language search to recently pushed repos

	MarkerFile        string
	MarkerSearchMax   int
	MarkerCreatedDays int // 0 = no client-side creation filter
	EmployeeOrgs      []string

	ReadmeMaxChars int
	CachePath      string // SQLite fetch cache; "" disables

	Policy schema.ScoringPolicy

	DevMode  bool
	LogLevel string
}

// ConfigRawInput holds the raw, unvalidated configuration from all viper
// sources (file, env, flags) before processing.
type ConfigRawInput struct {
	GitHubToken       string   `mapstructure:"github-token"`
	DatabaseURL       string   `mapstructure:"database-url"`
	PoolMinConns      int32    `mapstructure:"pool-min-conns"`
	PoolMaxConns      int32    `mapstructure:"pool-max-conns"`
	Languages         []string `mapstructure:"languages"`
	PerRunRepoLimit   int      `mapstructure:"per-run-repo-limit"`
	ChunkSize         int      `mapstructure:"chunk-size"`
	UpdatedWindow     int      `mapstructure:"updated-window-days"`
	MarkerFile        string   `mapstructure:"marker-file"`
	MarkerSearchMax   int      `mapstructure:"marker-search-max"`
	MarkerCreatedDays int      `mapstructure:"marker-created-days"`
	EmployeeOrgs      []string `mapstructure:"employee-orgs"`
	ReadmeMaxChars    int      `mapstructure:"readme-max-chars"`
	CachePath         string   `mapstructure:"cache-path"`
	QualityThreshold  float64  `mapstructure:"quality-threshold"`
	OverallLimit      int      `mapstructure:"overall-limit"`
	PerLanguageLimit  int      `mapstructure:"per-language-limit"`
	DevMode           bool     `mapstructure:"dev-mode"`
	LogLevel          string   `mapstructure:"log-level"`
}

// ValidateToken checks that a GitHub access token looks like a real PAT or
// OAuth token. A malformed token is a configuration error and fatal.
func ValidateToken(token string) error {
	if token == "" {
		return errors.New("github token is required (set TRENDER_GITHUB_TOKEN or github-token)")
	}
	for _, prefix := range tokenPrefixes {
		if strings.HasPrefix(token, prefix) {
			return nil
		}
	}
	return fmt.Errorf("github token appears invalid: expected one of the prefixes %s", strings.Join(tokenPrefixes, ", "))
}

// ProcessAndValidate converts raw input into a validated Config.
// Configuration errors abort the run; there is no retry for these.
func ProcessAndValidate(cfg *Config, in *ConfigRawInput) error {
	if err := ValidateToken(in.GitHubToken); err != nil {
		return err
	}
	if in.DatabaseURL == "" {
		return errors.New("database url is required (set TRENDER_DATABASE_URL or database-url)")
	}
	if in.PoolMinConns < 0 || in.PoolMaxConns < 1 || in.PoolMinConns > in.PoolMaxConns {
		return fmt.Errorf("invalid pool bounds: min=%d max=%d", in.PoolMinConns, in.PoolMaxConns)
	}
	if in.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be positive, got %d", in.ChunkSize)
	}
	if in.QualityThreshold < 0 || in.QualityThreshold > 1 {
		return fmt.Errorf("quality threshold must be within [0,1], got %v", in.QualityThreshold)
	}

	cfg.GitHubToken = in.GitHubToken
	cfg.DatabaseURL = in.DatabaseURL
	cfg.PoolMinConns = in.PoolMinConns
	cfg.PoolMaxConns = in.PoolMaxConns
	cfg.Languages = in.Languages
	if len(cfg.Languages) == 0 {
		cfg.Languages = schema.DefaultLanguages
	}
	cfg.PerRunRepoLimit = in.PerRunRepoLimit
	cfg.ChunkSize = in.ChunkSize
	cfg.UpdatedWindow = in.UpdatedWindow
	cfg.MarkerFile = in.MarkerFile
	cfg.MarkerSearchMax = in.MarkerSearchMax
	cfg.MarkerCreatedDays = in.MarkerCreatedDays
	cfg.EmployeeOrgs = normalizeOrgs(in.EmployeeOrgs)
	cfg.ReadmeMaxChars = in.ReadmeMaxChars
	cfg.CachePath = in.CachePath
	cfg.LogLevel = in.LogLevel

	cfg.Policy = schema.DefaultScoringPolicy()
	cfg.Policy.QualityThreshold = in.QualityThreshold
	if in.OverallLimit > 0 {
		cfg.Policy.OverallLimit = in.OverallLimit
	}
	if in.PerLanguageLimit > 0 {
		cfg.Policy.PerLanguageLimit = in.PerLanguageLimit
	}

	// Dev mode is an explicit configuration value, not an ambient env
	// check: it shrinks the run to one language and a handful of repos.
	cfg.DevMode = in.DevMode
	if cfg.DevMode {
		cfg.Languages = cfg.Languages[:1]
		if cfg.PerRunRepoLimit > 10 {
			cfg.PerRunRepoLimit = 10
		}
		if cfg.MarkerSearchMax > 10 {
			cfg.MarkerSearchMax = 10
		}
	}

	return nil
}

// normalizeOrgs lowercases and trims an org list, dropping empties.
func normalizeOrgs(orgs []string) []string {
	out := make([]string, 0, len(orgs))
	for _, org := range orgs {
		org = strings.ToLower(strings.TrimSpace(org))
		if org != "" {
			out = append(out, org)
		}
	}
	return out
}
