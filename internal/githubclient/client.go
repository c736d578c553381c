// Package githubclient implements the authenticated GitHub API client with
// rate-limit bookkeeping and centralized retry.
package githubclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trenderhq/trender/internal/contract"
	"github.com/trenderhq/trender/schema"
)

const defaultBaseURL = "https://api.github.com"

// ErrBadCredentials is returned when the API rejects the token outright.
// Unlike the expected failure modes, this is surfaced to the caller so the
// run can abort instead of silently producing nothing.
var ErrBadCredentials = errors.New("github: bad credentials")

// readmeFilenames are tried in order when fetching a README from the
// repository root.
var readmeFilenames = []string{"README.md", "readme.md", "README.rst", "README.txt", "README"}

var _ contract.RepoAPI = (*Client)(nil) // Compile-time check

// Client is an authenticated GitHub API client. Rate-limit counters are
// client-owned state guarded by a mutex; every concurrent analysis task
// shares one Client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	maxReadme  int
	log        *logrus.Entry

	mu            sync.Mutex
	rateRemaining int
	rateReset     time.Time

	cache *FetchCache

	// Injectable for tests.
	now       func() time.Time
	sleep     func(time.Duration)
	retryBase time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithReadmeMaxChars bounds README truncation.
func WithReadmeMaxChars(n int) Option {
	return func(c *Client) { c.maxReadme = n }
}

// WithFetchCache attaches a file-contents cache.
func WithFetchCache(fc *FetchCache) Option {
	return func(c *Client) { c.cache = fc }
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithSleep overrides the sleep function (used by tests).
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithRetryBaseDelay overrides the first retry delay (used by tests).
func WithRetryBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.retryBase = d }
}

// NewClient creates a Client for the given access token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: schema.RequestTimeout},
		baseURL:       defaultBaseURL,
		token:         token,
		maxReadme:     schema.DefaultReadmeMaxChars,
		log:           logrus.WithField("component", "githubclient"),
		rateRemaining: 5000,
		now:           time.Now,
		sleep:         time.Sleep,
		retryBase:     schema.RetryBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases idle connections and the fetch cache, if any.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}

// beforeRequest sleeps past the rate-limit reset when the remaining quota
// is below the low-water mark.
func (c *Client) beforeRequest() {
	c.mu.Lock()
	remaining := c.rateRemaining
	reset := c.rateReset
	c.mu.Unlock()

	if remaining >= schema.RateLimitFloor || reset.IsZero() {
		return
	}
	wait := reset.Sub(c.now())
	if wait < 0 {
		wait = 0
	}
	wait += schema.RateLimitSafetyMargin
	c.log.WithFields(logrus.Fields{"remaining": remaining, "wait": wait}).Warn("Rate limit low, sleeping until reset")
	c.sleep(wait)
}

// afterResponse refreshes rate-limit state from response headers.
// Last write wins: the API's own counter is authoritative.
func (c *Client) afterResponse(h http.Header) {
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	c.mu.Lock()
	c.rateRemaining = remaining
	if resetUnix, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil && resetUnix > 0 {
		c.rateReset = time.Unix(resetUnix, 0)
	}
	c.mu.Unlock()
}

// apiGet issues one authenticated GET with the shared retry policy.
// Expected failure modes (404, rate-limit 403, 422, exhausted transient
// retries) return (nil, nil); only bad credentials produce an error.
func (c *Client) apiGet(ctx context.Context, rawURL string) ([]byte, error) {
	c.beforeRequest()

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "token "+c.token)
		req.Header.Set("Accept", "application/vnd.github.v3+json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err // network error or timeout: transient
		}
		defer func() { _ = resp.Body.Close() }()
		c.afterResponse(resp.Header)

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err = io.ReadAll(resp.Body)
			return err
		case resp.StatusCode == http.StatusNotFound:
			body = nil
			return nil
		case resp.StatusCode == http.StatusUnauthorized:
			return ErrBadCredentials
		case resp.StatusCode == http.StatusForbidden:
			// Rate limited vs insufficient scope; both fail soft.
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if strings.Contains(strings.ToLower(string(msg)), "rate limit") {
				c.log.WithField("url", rawURL).Warn("Secondary rate limit hit, returning empty result")
			} else {
				c.log.WithField("url", rawURL).Warn("Forbidden (token scope?), returning empty result")
			}
			body = nil
			return nil
		case resp.StatusCode == http.StatusUnprocessableEntity:
			c.log.WithField("url", rawURL).Warn("Unprocessable query, returning empty result")
			body = nil
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("server error: status %d", resp.StatusCode)
		default:
			c.log.WithFields(logrus.Fields{"url": rawURL, "status": resp.StatusCode}).Warn("Unexpected status, returning empty result")
			body = nil
			return nil
		}
	}

	err := contract.Retry(ctx, c.retryBase, schema.MaxAPIRetries, isTransient, op)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			return nil, err
		}
		// Exhausted retries on a genuinely transient error degrades to
		// absence at the call site.
		c.log.WithError(err).WithField("url", rawURL).Warn("Request failed after retries")
		return nil, nil
	}
	return body, nil
}

// isTransient reports whether an error should be retried. Credential
// rejection is terminal; everything else reaching the retry loop (network
// errors, timeouts, 5xx) is worth another attempt.
func isTransient(err error) bool {
	return !errors.Is(err, ErrBadCredentials)
}

// searchResponse is the wire shape of /search endpoints.
type searchResponse struct {
	Items []repoItem `json:"items"`
}

// repoItem is the wire shape of a repository record. Code-search items nest
// the repository under a "repository" key instead.
type repoItem struct {
	FullName        string    `json:"full_name"`
	HTMLURL         string    `json:"html_url"`
	Language        string    `json:"language"`
	Description     string    `json:"description"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Topics          []string  `json:"topics"`
	Repository      *repoItem `json:"repository"`
}

// toCandidate converts a wire record to the domain type.
func (r *repoItem) toCandidate() schema.RepositoryCandidate {
	return schema.RepositoryCandidate{
		FullName:    r.FullName,
		URL:         r.HTMLURL,
		Language:    r.Language,
		Description: r.Description,
		Stars:       r.StargazersCount,
		Forks:       r.ForksCount,
		OpenIssues:  r.OpenIssuesCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Topics:      r.Topics,
	}
}

// SearchRepositories searches repositories by language, optionally
// restricted to those pushed since updatedSince.
func (c *Client) SearchRepositories(ctx context.Context, language, sort string, updatedSince time.Time) ([]schema.RepositoryCandidate, error) {
	query := "language:" + language
	if !updatedSince.IsZero() {
		query += " pushed:>=" + updatedSince.Format("2006-01-02")
	}
	v := url.Values{}
	v.Set("q", query)
	v.Set("sort", sort)
	v.Set("per_page", "100")

	body, err := c.apiGet(ctx, c.baseURL+"/search/repositories?"+v.Encode())
	if err != nil || body == nil {
		return nil, err
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.log.WithError(err).Warn("Malformed search response")
		return nil, nil
	}
	return itemsToCandidates(resp.Items), nil
}

// GetRepoDetails fetches the full record for one repository, or nil when
// the repository does not exist.
func (c *Client) GetRepoDetails(ctx context.Context, owner, repo string) (*schema.RepositoryCandidate, error) {
	body, err := c.apiGet(ctx, fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, repo))
	if err != nil || body == nil {
		return nil, err
	}
	var item repoItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, nil
	}
	cand := item.toCandidate()
	return &cand, nil
}

// contentsResponse is the wire shape of /repos/{o}/{r}/contents/{path}.
type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// GetFileContents fetches one file from the repository and decodes its
// base64 blob. Returns "" when the file does not exist.
func (c *Client) GetFileContents(ctx context.Context, owner, repo, path string) (string, error) {
	day := c.now().Format("2006-01-02")
	key := owner + "/" + repo + "/" + path
	if c.cache != nil {
		if content, ok := c.cache.Get(key, day); ok {
			return content, nil
		}
	}

	body, err := c.apiGet(ctx, fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, owner, repo, url.PathEscape(path)))
	if err != nil || body == nil {
		return "", err
	}
	var resp contentsResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Content == "" {
		return "", nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
	if err != nil {
		c.log.WithField("path", key).Warn("Undecodable file content")
		return "", nil
	}
	content := string(decoded)

	if c.cache != nil {
		if err := c.cache.Put(key, day, content); err != nil {
			c.log.WithError(err).Debug("Fetch cache write failed")
		}
	}
	return content, nil
}

// FetchReadme tries the known README filenames in the repository root and
// returns the first match truncated to the configured bound, or "".
func (c *Client) FetchReadme(ctx context.Context, owner, repo string) (string, error) {
	for _, name := range readmeFilenames {
		content, err := c.GetFileContents(ctx, owner, repo, name)
		if err != nil {
			return "", err
		}
		if content != "" {
			return truncate(content, c.maxReadme), nil
		}
	}
	return "", nil
}

// SearchByMarkerFile is the composite marker discovery operation: code
// search by filename, dedup by full name, detail backfill for records the
// search response left incomplete, client-side creation-date filter (the
// code-search API cannot filter by date server-side), sorted by stars
// descending and capped at limit.
func (c *Client) SearchByMarkerFile(ctx context.Context, filename string, limit int, createdSince time.Time) ([]schema.RepositoryCandidate, error) {
	v := url.Values{}
	v.Set("q", "filename:"+filename)
	v.Set("per_page", "100")

	body, err := c.apiGet(ctx, c.baseURL+"/search/code?"+v.Encode())
	if err != nil || body == nil {
		return nil, err
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil
	}

	seen := make(map[string]bool)
	var out []schema.RepositoryCandidate
	for _, item := range resp.Items {
		repo := item.Repository
		if repo == nil {
			continue
		}
		if repo.FullName == "" || seen[repo.FullName] {
			continue
		}
		seen[repo.FullName] = true

		cand := repo.toCandidate()
		if cand.Stars == 0 && cand.CreatedAt.IsZero() {
			// Code-search results carry a slim repository record; fill in
			// stars and timestamps with a detail fetch.
			if full, err := c.GetRepoDetails(ctx, cand.Owner(), cand.Name()); err != nil {
				return nil, err
			} else if full != nil {
				cand = *full
			}
		}
		if !createdSince.IsZero() && (cand.CreatedAt.IsZero() || cand.CreatedAt.Before(createdSince)) {
			continue
		}
		out = append(out, cand)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Stars > out[j].Stars })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetOrgRepos lists the repositories of an organization.
func (c *Client) GetOrgRepos(ctx context.Context, org string) ([]schema.RepositoryCandidate, error) {
	body, err := c.apiGet(ctx, fmt.Sprintf("%s/orgs/%s/repos?per_page=100", c.baseURL, org))
	if err != nil || body == nil {
		return nil, err
	}
	var items []repoItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, nil
	}
	return itemsToCandidates(items), nil
}

// SearchByTopic searches repositories by topic tag.
func (c *Client) SearchByTopic(ctx context.Context, topic string) ([]schema.RepositoryCandidate, error) {
	v := url.Values{}
	v.Set("q", "topic:"+topic)
	v.Set("per_page", "100")

	body, err := c.apiGet(ctx, c.baseURL+"/search/repositories?"+v.Encode())
	if err != nil || body == nil {
		return nil, err
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil
	}
	return itemsToCandidates(resp.Items), nil
}

// itemsToCandidates converts wire records, dropping entries with no
// full name.
func itemsToCandidates(items []repoItem) []schema.RepositoryCandidate {
	out := make([]schema.RepositoryCandidate, 0, len(items))
	for i := range items {
		if items[i].FullName == "" {
			continue
		}
		out = append(out, items[i].toCandidate())
	}
	return out
}

// truncate bounds s to max runes.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
