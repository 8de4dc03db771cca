package linkcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softweb-fr/softweb-fr.github.io/internal/check"
	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
)

type countingHandler struct {
	mu       sync.Mutex
	hits     map[string]int
	ua       string
	getRange string
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.hits[r.URL.Path]++
	n := h.hits[r.URL.Path]
	h.ua = r.Header.Get("User-Agent")
	if r.Method == http.MethodGet {
		h.getRange = r.Header.Get("Range")
	}
	h.mu.Unlock()

	switch r.URL.Path {
	case "/ok":
		w.WriteHeader(http.StatusOK)
	case "/gone":
		w.WriteHeader(http.StatusNotFound)
	case "/head-blocked":
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	case "/flaky":
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *countingHandler) count(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[path]
}

func fastOptions() Options {
	return Options{
		Timeout:     5 * time.Second,
		Concurrency: 4,
		MaxRetries:  1,
		Backoff:     time.Millisecond,
		PerHost:     1000,
		Burst:       1000,
	}
}

func TestCheckerCheck(t *testing.T) {
	h := &countingHandler{hits: make(map[string]int)}
	srv := httptest.NewServer(h)
	defer srv.Close()

	articles := []*content.Article{
		{
			Path: "posts/un.md",
			Links: []content.Link{
				{Dest: srv.URL + "/ok", Kind: content.LinkExternal, Line: 3},
				{Dest: srv.URL + "/gone", Kind: content.LinkExternal, Line: 5},
				{Dest: srv.URL + "/head-blocked", Kind: content.LinkExternal, Line: 7},
				{Dest: "/interne", Kind: content.LinkInternal, Line: 9, Target: "/interne"},
			},
		},
		{
			Path: "posts/deux.md",
			Links: []content.Link{
				{Dest: srv.URL + "/ok#section", Kind: content.LinkExternal, Line: 2},
				{Dest: srv.URL + "/flaky", Kind: content.LinkExternal, Line: 4},
			},
		},
	}

	c := New(fastOptions())
	findings := c.Check(context.Background(), articles)

	require.Len(t, findings, 1)
	assert.Equal(t, RuleExternalStatus, findings[0].Rule)
	assert.Equal(t, "posts/un.md", findings[0].Path)
	assert.Equal(t, 5, findings[0].Line)
	assert.Contains(t, findings[0].Message, "returned HTTP 404")

	// Shared URLs are fetched once, fragments included.
	assert.Equal(t, 1, h.count("/ok"))
	assert.Equal(t, 1, h.count("/gone"))
	// HEAD is refused, the ranged GET fallback kicks in.
	assert.Equal(t, 2, h.count("/head-blocked"))
	assert.Equal(t, "bytes=0-0", h.getRange)
	// First response is a 503, the retry sees a 200.
	assert.Equal(t, 2, h.count("/flaky"))

	assert.Equal(t, defaultUserAgent, h.ua)
}

func TestCheckerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	dead := srv.URL
	srv.Close()

	articles := []*content.Article{{
		Path:  "posts/un.md",
		Links: []content.Link{{Dest: dead + "/page", Kind: content.LinkExternal, Line: 4}},
	}}

	c := New(fastOptions())
	findings := c.Check(context.Background(), articles)

	require.Len(t, findings, 1)
	assert.Equal(t, RuleExternalUnreachable, findings[0].Rule)
	assert.Equal(t, check.SeverityError, findings[0].Severity)
	assert.Equal(t, 4, findings[0].Line)
}

func TestCheckerUsesCache(t *testing.T) {
	h := &countingHandler{hits: make(map[string]int)}
	srv := httptest.NewServer(h)
	defer srv.Close()

	cache := NewCache("", time.Hour)
	now := time.Now()
	cache.Put(Entry{URL: srv.URL + "/ok", Status: 200, OK: true, CheckedAt: now})
	cache.Put(Entry{URL: srv.URL + "/gone", Status: 404, CheckedAt: now})
	cache.Put(Entry{URL: srv.URL + "/dead", Error: "connection refused", CheckedAt: now})

	opts := fastOptions()
	opts.Cache = cache
	c := New(opts)

	articles := []*content.Article{{
		Path: "posts/un.md",
		Links: []content.Link{
			{Dest: srv.URL + "/ok", Kind: content.LinkExternal, Line: 2},
			{Dest: srv.URL + "/gone", Kind: content.LinkExternal, Line: 3},
			{Dest: srv.URL + "/dead", Kind: content.LinkExternal, Line: 4},
		},
	}}
	findings := c.Check(context.Background(), articles)

	require.Len(t, findings, 2)
	assert.Equal(t, RuleExternalStatus, findings[0].Rule)
	assert.Equal(t, RuleExternalUnreachable, findings[1].Rule)
	assert.Contains(t, findings[1].Message, "(cached)")

	// Every answer came from the cache.
	assert.Equal(t, 0, h.count("/ok"))
	assert.Equal(t, 0, h.count("/gone"))
	assert.Equal(t, 0, h.count("/dead"))
}

func TestCheckerSkipPatterns(t *testing.T) {
	h := &countingHandler{hits: make(map[string]int)}
	srv := httptest.NewServer(h)
	defer srv.Close()

	opts := fastOptions()
	opts.Skip = []string{"127.0.0.1", "example.com/api/"}
	c := New(opts)

	articles := []*content.Article{{
		Path: "posts/un.md",
		Links: []content.Link{
			{Dest: srv.URL + "/gone", Kind: content.LinkExternal, Line: 2},
			{Dest: "https://example.com/api/v1", Kind: content.LinkExternal, Line: 3},
		},
	}}
	findings := c.Check(context.Background(), articles)

	assert.Empty(t, findings)
	assert.Equal(t, 0, h.count("/gone"))
}

func TestCheckerNoExternalLinks(t *testing.T) {
	articles := []*content.Article{{
		Path:  "about.md",
		Links: []content.Link{{Dest: "/contact", Kind: content.LinkInternal, Target: "/contact"}},
	}}
	c := New(Options{})
	assert.Nil(t, c.Check(context.Background(), articles))
}

func TestCollectTargets(t *testing.T) {
	articles := []*content.Article{
		{
			Path: "a.md",
			Links: []content.Link{
				{Dest: "https://example.com/doc", Kind: content.LinkExternal, Line: 2},
				{Dest: "#ancre", Kind: content.LinkAnchor, Line: 3, Fragment: "ancre"},
			},
		},
		{
			Path: "b.md",
			Links: []content.Link{
				{Dest: "https://example.com/doc#installation", Kind: content.LinkExternal, Line: 8},
				{Dest: "https://example.org/", Kind: content.LinkExternal, Line: 9},
			},
		},
	}

	targets := collectTargets(articles)
	require.Len(t, targets, 2)
	assert.Equal(t, "https://example.com/doc", targets[0].url)
	assert.Equal(t, []site{{path: "a.md", line: 2}, {path: "b.md", line: 8}}, targets[0].sites)
	assert.Equal(t, "https://example.org/", targets[1].url)
}
