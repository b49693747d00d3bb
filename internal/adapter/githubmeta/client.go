// Package githubmeta implements the metadata port against the GitHub REST
// v3 API. Outbound requests are rate limited client-side and GET bodies
// are cached in-process, so classification workers never contend on the
// API.
package githubmeta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/Strob0t/BenchForge/internal/config"
	"github.com/Strob0t/BenchForge/internal/domain"
	"github.com/Strob0t/BenchForge/internal/domain/session"
	"github.com/Strob0t/BenchForge/internal/port/cache"
)

const (
	acceptJSON = "application/vnd.github.v3+json"
	acceptDiff = "application/vnd.github.v3.diff"

	perPage = 100
)

// HTTPClient is the transport seam, swappable in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches pull request metadata for one repository.
type Client struct {
	apiURL  string
	repo    string
	token   string
	http    HTTPClient
	limiter *rate.Limiter
	cache   cache.Cache
	ttl     time.Duration
	log     *slog.Logger
}

// New creates a Client bound to one "owner/name" repository. The token may
// be empty for public repositories; when set it is sent on every request.
func New(cfg config.GitHub, rateCfg config.Rate, repo, token string, c cache.Cache, log *slog.Logger) *Client {
	return &Client{
		apiURL: strings.TrimSuffix(cfg.APIURL, "/"),
		repo:   repo,
		token:  token,
		http: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Limit(rateCfg.RequestsPerSecond), rateCfg.Burst),
		cache:   c,
		ttl:     cfg.DiffCacheTTL,
		log:     log,
	}
}

// Repo returns the bound "owner/name" identifier.
func (c *Client) Repo() string { return c.repo }

// CloneURL returns the https clone URL of the bound repository.
func (c *Client) CloneURL() string {
	return fmt.Sprintf("https://github.com/%s.git", c.repo)
}

// apiPull mirrors the GitHub pull request JSON shape.
type apiPull struct {
	Number         int        `json:"number"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	State          string     `json:"state"`
	MergedAt       *time.Time `json:"merged_at"`
	MergeCommitSHA string     `json:"merge_commit_sha"`
	HTMLURL        string     `json:"html_url"`
	Base           apiRef     `json:"base"`
	Head           apiRef     `json:"head"`
}

type apiRef struct {
	SHA string `json:"sha"`
}

// PullRequest fetches metadata for one pull request, diff excluded. A
// missing number wraps domain.ErrNotFound.
func (c *Client) PullRequest(ctx context.Context, number int) (session.PullRequest, error) {
	body, err := c.get(ctx, c.pullURL(number), acceptJSON)
	if err != nil {
		return session.PullRequest{}, err
	}

	var pull apiPull
	if err := json.Unmarshal(body, &pull); err != nil {
		return session.PullRequest{}, fmt.Errorf("decode pull %d: %w", number, err)
	}

	return session.PullRequest{
		Number:   pull.Number,
		Title:    pull.Title,
		Body:     pull.Body,
		State:    pull.State,
		BaseSHA:  pull.Base.SHA,
		HeadSHA:  pull.Head.SHA,
		MergeSHA: pull.MergeCommitSHA,
		MergedAt: pull.MergedAt,
		HTMLURL:  pull.HTMLURL,
	}, nil
}

// Diff fetches the unified diff of one pull request via the diff media
// type on the same endpoint.
func (c *Client) Diff(ctx context.Context, number int) (string, error) {
	body, err := c.get(ctx, c.pullURL(number), acceptDiff)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// apiFile mirrors one entry of the pull request files listing.
type apiFile struct {
	Filename string `json:"filename"`
}

// Files lists the paths the pull request touches, following RFC 5988 Link
// headers until the listing is exhausted.
func (c *Client) Files(ctx context.Context, number int) ([]string, error) {
	url := fmt.Sprintf("%s/files?per_page=%d", c.pullURL(number), perPage)

	var paths []string
	for url != "" {
		body, next, err := c.getPage(ctx, url)
		if err != nil {
			return nil, err
		}

		var files []apiFile
		if err := json.Unmarshal(body, &files); err != nil {
			return nil, fmt.Errorf("decode pull %d files: %w", number, err)
		}
		for _, f := range files {
			paths = append(paths, f.Filename)
		}
		url = next
	}
	return paths, nil
}

func (c *Client) pullURL(number int) string {
	return fmt.Sprintf("%s/repos/%s/pulls/%d", c.apiURL, c.repo, number)
}

// get performs one cached GET. A cache hit skips both the limiter and the
// transport entirely.
func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	key := accept + " " + url
	if c.cache != nil {
		if body, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			return body, nil
		}
	}

	body, _, err := c.fetch(ctx, url, accept)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, body, c.ttl)
	}
	return body, nil
}

// getPage performs one uncached GET and returns the rel="next" link, if
// any. Paginated listings bypass the cache: page URLs are unstable keys.
func (c *Client) getPage(ctx context.Context, url string) (body []byte, next string, err error) {
	return c.fetch(ctx, url, acceptJSON)
}

func (c *Client) fetch(ctx context.Context, url, accept string) (body []byte, next string, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", url, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", fmt.Errorf("GET %s: %w", url, domain.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, "", fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nextLink(resp.Header.Get("Link")), nil
}

// nextLink extracts the rel="next" URL from an RFC 5988 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if strings.TrimSpace(section[1]) == `rel="next"` {
			return strings.Trim(strings.TrimSpace(section[0]), "<>")
		}
	}
	return ""
}
