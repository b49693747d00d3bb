package githubmeta

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/BenchForge/internal/config"
	"github.com/Strob0t/BenchForge/internal/domain"
)

// fakeHTTP routes requests to canned responses keyed by URL, recording
// request headers.
type fakeHTTP struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	requests  []*http.Request
}

type fakeResponse struct {
	status int
	body   string
	link   string
}

func (f *fakeHTTP) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	resp, ok := f.responses[req.URL.String()]
	if !ok {
		return nil, errors.New("unexpected URL " + req.URL.String())
	}
	header := http.Header{}
	if resp.link != "" {
		header.Set("Link", resp.link)
	}
	return &http.Response{
		StatusCode: resp.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(resp.body)),
	}, nil
}

// memCache is a minimal cache port fake.
type memCache struct {
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func newClient(f *fakeHTTP, c *memCache) *Client {
	cfg := config.GitHub{APIURL: "https://api.github.com", RequestTimeout: time.Second, DiffCacheTTL: time.Hour}
	rateCfg := config.Rate{RequestsPerSecond: 1000, Burst: 1000}

	cl := New(cfg, rateCfg, "pandas-dev/pandas", "tok123", nil, slog.New(slog.DiscardHandler))
	if c != nil {
		cl.cache = c
	}
	cl.http = f
	return cl
}

const pullJSON = `{
	"number": 42,
	"title": "Fix groupby",
	"body": "Closes #41",
	"state": "closed",
	"merged_at": "2024-03-01T10:00:00Z",
	"merge_commit_sha": "m3rge",
	"html_url": "https://github.com/pandas-dev/pandas/pull/42",
	"base": {"sha": "ba5e"},
	"head": {"sha": "h3ad"}
}`

func TestClient_PullRequest(t *testing.T) {
	f := &fakeHTTP{responses: map[string]fakeResponse{
		"https://api.github.com/repos/pandas-dev/pandas/pulls/42": {status: 200, body: pullJSON},
	}}
	cl := newClient(f, nil)

	pr, err := cl.PullRequest(context.Background(), 42)
	if err != nil {
		t.Fatalf("PullRequest returned error: %v", err)
	}
	if pr.Number != 42 || pr.BaseSHA != "ba5e" || pr.HeadSHA != "h3ad" || pr.MergeSHA != "m3rge" {
		t.Errorf("unexpected pull request fields: %+v", pr)
	}
	if !pr.Merged() {
		t.Error("expected merged pull request")
	}

	req := f.requests[0]
	if got := req.Header.Get("Accept"); got != acceptJSON {
		t.Errorf("expected Accept %q, got %q", acceptJSON, got)
	}
	if got := req.Header.Get("Authorization"); got != "token tok123" {
		t.Errorf("expected token auth header, got %q", got)
	}
}

func TestClient_DiffMediaType(t *testing.T) {
	f := &fakeHTTP{responses: map[string]fakeResponse{
		"https://api.github.com/repos/pandas-dev/pandas/pulls/42": {status: 200, body: "diff --git a/x b/x\n"},
	}}
	cl := newClient(f, nil)

	diff, err := cl.Diff(context.Background(), 42)
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}
	if !strings.HasPrefix(diff, "diff --git") {
		t.Errorf("unexpected diff body: %q", diff)
	}
	if got := f.requests[0].Header.Get("Accept"); got != acceptDiff {
		t.Errorf("expected Accept %q, got %q", acceptDiff, got)
	}
}

func TestClient_NotFound(t *testing.T) {
	f := &fakeHTTP{responses: map[string]fakeResponse{
		"https://api.github.com/repos/pandas-dev/pandas/pulls/7": {status: 404, body: `{"message":"Not Found"}`},
	}}
	cl := newClient(f, nil)

	_, err := cl.PullRequest(context.Background(), 7)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_CacheHitSkipsTransport(t *testing.T) {
	f := &fakeHTTP{responses: map[string]fakeResponse{
		"https://api.github.com/repos/pandas-dev/pandas/pulls/42": {status: 200, body: pullJSON},
	}}
	cl := newClient(f, newMemCache())

	if _, err := cl.PullRequest(context.Background(), 42); err != nil {
		t.Fatal(err)
	}
	if _, err := cl.PullRequest(context.Background(), 42); err != nil {
		t.Fatal(err)
	}
	if len(f.requests) != 1 {
		t.Errorf("expected 1 transport request with cache, got %d", len(f.requests))
	}
}

func TestClient_FilesPagination(t *testing.T) {
	page1 := "https://api.github.com/repos/pandas-dev/pandas/pulls/42/files?per_page=100"
	page2 := "https://api.github.com/repos/pandas-dev/pandas/pulls/42/files?page=2&per_page=100"
	f := &fakeHTTP{responses: map[string]fakeResponse{
		page1: {
			status: 200,
			body:   `[{"filename":"pandas/core/groupby.py"}]`,
			link:   `<` + page2 + `>; rel="next", <` + page2 + `>; rel="last"`,
		},
		page2: {status: 200, body: `[{"filename":"pandas/tests/test_groupby.py"}]`},
	}}
	cl := newClient(f, nil)

	files, err := cl.Files(context.Background(), 42)
	if err != nil {
		t.Fatalf("Files returned error: %v", err)
	}
	want := []string{"pandas/core/groupby.py", "pandas/tests/test_groupby.py"}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Errorf("expected %v, got %v", want, files)
	}
}

func TestClient_CloneURL(t *testing.T) {
	cl := newClient(&fakeHTTP{}, nil)
	if got := cl.CloneURL(); got != "https://github.com/pandas-dev/pandas.git" {
		t.Errorf("unexpected clone URL %q", got)
	}
}

func TestNextLink(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{`<https://x/p?page=2>; rel="next", <https://x/p?page=9>; rel="last"`, "https://x/p?page=2"},
		{`<https://x/p?page=9>; rel="last"`, ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := nextLink(tt.header); got != tt.want {
			t.Errorf("nextLink(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
