package core

import (
	"context"
	"regexp"
	"strings"

	"github.com/trenderhq/trender/schema"
	"gopkg.in/yaml.v3"
)

// blueprintButtonMarker is the deploy-button URL fragment looked for in
// READMEs.
const blueprintButtonMarker = "render.com/deploy"

// dockerRenderPatterns are the infrastructure fingerprints scanned for in a
// Dockerfile.
var dockerRenderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)render\.com`),
	regexp.MustCompile(`(?i)RENDER_`),
	regexp.MustCompile(`(?i)onrender\.com`),
}

// blueprintConfig is the subset of a render.yaml blueprint the detector
// cares about.
type blueprintConfig struct {
	Services []struct {
		Type string `yaml:"type"`
		Name string `yaml:"name"`
	} `yaml:"services"`
	Databases []struct {
		Type string `yaml:"type"`
		Name string `yaml:"name"`
	} `yaml:"databases"`
}

// parsedBlueprint is the normalized parse result. ServiceCount counts
// services and databases together.
type parsedBlueprint struct {
	Services     []string
	Databases    []string
	ServiceCount int
}

// ParseBlueprint parses marker-file YAML into service and database type
// lists. A malformed or empty document parses to the zero value; parse
// failures never propagate.
func ParseBlueprint(content string) parsedBlueprint {
	var cfg blueprintConfig
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return parsedBlueprint{}
	}

	out := parsedBlueprint{ServiceCount: len(cfg.Services) + len(cfg.Databases)}
	for _, svc := range cfg.Services {
		t := svc.Type
		if t == "" {
			t = "unknown"
		}
		out.Services = append(out.Services, t)
	}
	for _, db := range cfg.Databases {
		t := db.Type
		if t == "" {
			t = "postgres"
		}
		out.Databases = append(out.Databases, t)
	}
	return out
}

// dockerSignals summarizes deployment fingerprints found in a Dockerfile.
type dockerSignals struct {
	UsesRenderEnv  bool
	PatternMatches int
}

// ScanDockerfile looks for deployment fingerprints in Dockerfile content.
func ScanDockerfile(content string) dockerSignals {
	if content == "" {
		return dockerSignals{}
	}
	out := dockerSignals{UsesRenderEnv: strings.Contains(content, "RENDER")}
	for _, pattern := range dockerRenderPatterns {
		if pattern.MatchString(content) {
			out.PatternMatches++
		}
	}
	return out
}

// ComplexityScore rates a deployment 0..10: up to 5 points for service
// count, up to 3 for service type diversity, up to 2 for Docker
// customization.
func ComplexityScore(bp parsedBlueprint, docker dockerSignals) int {
	score := min(bp.ServiceCount, 5)

	unique := make(map[string]bool, len(bp.Services))
	for _, svc := range bp.Services {
		unique[svc] = true
	}
	score += min(len(unique), 3)

	if docker.UsesRenderEnv {
		score++
	}
	if docker.PatternMatches > 0 {
		score++
	}
	return min(score, 10)
}

// Categorize buckets a repository by provenance: official allowlisted
// orgs, then blueprint topics, then configured employee orgs, defaulting
// to community.
func Categorize(repo *schema.RepositoryCandidate, employeeOrgs []string) string {
	owner := strings.ToLower(repo.Owner())

	for _, org := range schema.OfficialOrgs {
		if owner == org {
			return schema.CategoryOfficial
		}
	}
	for _, topic := range repo.Topics {
		for _, marker := range schema.BlueprintTopics {
			if topic == marker {
				return schema.CategoryBlueprint
			}
		}
	}
	for _, org := range employeeOrgs {
		if owner == org {
			return schema.CategoryEmployee
		}
	}
	return schema.CategoryCommunity
}

// BlueprintQuality rates a detected blueprint 0..10. A repository without
// the marker file scores zero regardless of other signals.
func BlueprintQuality(det *schema.RenderDetection) int {
	if !det.UsesRender {
		return 0
	}
	score := 3 // having the marker file at all
	score += min(len(det.Services), 3)

	unique := make(map[string]bool, len(det.Services))
	for _, svc := range det.Services {
		unique[svc] = true
	}
	if len(unique) > 1 {
		score += 2
	}
	if det.ComplexityScore >= 5 {
		score += 2
	}
	return min(score, 10)
}

// DocumentationScore rates repository documentation 0..10: description,
// README baseline, a README mention of the platform, and the deploy
// button.
func DocumentationScore(repo *schema.EnrichedRepository) int {
	score := 3 // README baseline; every analyzed repo gets this
	if repo.Description != "" {
		score += 2
	}
	if strings.Contains(strings.ToLower(repo.Readme), "render") {
		score += 2
	}
	if repo.Render.HasBlueprintButton {
		score += 3
	}
	return min(score, 10)
}

// DetectUsage fetches and parses the marker file for one repository and
// returns the full detection result. Every failure mode short of a bad
// credential degrades to "not in use".
func (a *Analyzer) DetectUsage(ctx context.Context, repo *schema.RepositoryCandidate) (schema.RenderDetection, error) {
	if repo.Owner() == "" || repo.Name() == "" {
		return schema.RenderDetection{}, nil
	}

	markerContent, err := a.api.GetFileContents(ctx, repo.Owner(), repo.Name(), a.cfg.MarkerFile)
	if err != nil {
		return schema.RenderDetection{}, err
	}
	if markerContent == "" {
		return schema.RenderDetection{}, nil
	}
	a.log.WithField("repo", repo.FullName).Debug("Marker file found")

	bp := ParseBlueprint(markerContent)

	dockerContent, err := a.api.GetFileContents(ctx, repo.Owner(), repo.Name(), "Dockerfile")
	if err != nil {
		return schema.RenderDetection{}, err
	}
	docker := ScanDockerfile(dockerContent)

	det := schema.RenderDetection{
		UsesRender:      true,
		Category:        Categorize(repo, a.cfg.EmployeeOrgs),
		Services:        bp.Services,
		Databases:       bp.Databases,
		ServiceCount:    bp.ServiceCount,
		ComplexityScore: ComplexityScore(bp, docker),
	}
	det.BlueprintQuality = BlueprintQuality(&det)
	return det, nil
}

// FinalizeDetection patches the README-derived detection fields once the
// README fetch has joined: the deploy-button flag, the blueprint quality
// rescore it feeds, and the documentation score.
func FinalizeDetection(repo *schema.EnrichedRepository) {
	repo.Render.HasBlueprintButton = strings.Contains(strings.ToLower(repo.Readme), blueprintButtonMarker)
	if repo.Render.UsesRender {
		repo.Render.BlueprintQuality = BlueprintQuality(&repo.Render)
	}
	repo.Render.DocumentationScore = DocumentationScore(repo)
}
