// Package linkcheck probes the external link destinations of the corpus
// over HTTP. Probes are deduplicated across articles, rate limited per
// host and cached between runs.
package linkcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/softweb-fr/softweb-fr.github.io/internal/check"
	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
	"github.com/softweb-fr/softweb-fr.github.io/internal/log"
)

// Rules produced by the checker.
const (
	RuleExternalStatus      = "links/external-status"
	RuleExternalUnreachable = "links/external-unreachable"
)

const defaultUserAgent = "blogctl-linkcheck/1.0"

// Options tunes the checker. The zero value gets usable defaults.
type Options struct {
	Timeout     time.Duration // per request
	Concurrency int           // parallel probes
	MaxRetries  int           // extra attempts after a transient failure
	Backoff     time.Duration // base delay, grows quadratically per attempt
	PerHost     rate.Limit    // sustained requests per second per host
	Burst       int
	UserAgent   string
	Skip        []string // hosts, or URL substrings when the pattern has a slash
	Cache       *Cache   // optional, nil disables caching
}

// Checker probes external URLs. Safe for a single Check call at a time.
type Checker struct {
	opts   Options
	client *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Checker, filling in defaults for unset options.
func New(opts Options) *Checker {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.PerHost <= 0 {
		opts.PerHost = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 2
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Checker{
		opts:     opts,
		client:   &http.Client{Timeout: opts.Timeout},
		limiters: make(map[string]*rate.Limiter),
	}
}

// site is one place a URL is referenced from.
type site struct {
	path string
	line int
}

// target is one deduplicated URL with every place it appears.
type target struct {
	url   string
	sites []site
}

// probeResult is the outcome of probing one URL.
type probeResult struct {
	Status int
	OK     bool
	Err    error
	Cached bool
}

// Check probes every external link of the given articles and returns
// findings for unreachable or misbehaving destinations. Each URL is
// fetched once no matter how many articles reference it.
func (c *Checker) Check(ctx context.Context, articles []*content.Article) []check.Finding {
	logger := log.WithComponentFromContext(ctx, "linkcheck")

	targets := collectTargets(articles)
	if len(c.opts.Skip) > 0 {
		kept := targets[:0]
		for _, t := range targets {
			if c.skipURL(t.url) {
				continue
			}
			kept = append(kept, t)
		}
		targets = kept
	}
	if len(targets) == 0 {
		return nil
	}

	start := time.Now()
	results := make([]probeResult, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			results[i] = c.probe(gctx, t.url)
			return nil
		})
	}
	// Workers never return errors, failures are carried in results.
	_ = g.Wait()

	cached := 0
	var findings []check.Finding
	for i, t := range targets {
		res := results[i]
		if res.Cached {
			cached++
		}
		switch {
		case res.Err != nil:
			for _, s := range t.sites {
				findings = append(findings, check.Finding{
					Rule:     RuleExternalUnreachable,
					Severity: check.SeverityError,
					Path:     s.path,
					Line:     s.line,
					Message:  fmt.Sprintf("%s is unreachable: %v", t.url, res.Err),
				})
			}
		case res.Status >= 400:
			for _, s := range t.sites {
				findings = append(findings, check.Finding{
					Rule:     RuleExternalStatus,
					Severity: severityForStatus(res.Status),
					Path:     s.path,
					Line:     s.line,
					Message:  fmt.Sprintf("%s returned HTTP %d", t.url, res.Status),
				})
			}
		}
	}

	logger.Info().
		Int("urls", len(targets)).
		Int("cached", cached).
		Int("findings", len(findings)).
		Dur("elapsed", time.Since(start)).
		Msg("external link probe complete")

	return findings
}

// collectTargets gathers external links across articles, one target per
// URL. Fragments are stripped, the server never sees them anyway.
func collectTargets(articles []*content.Article) []target {
	byURL := make(map[string]int)
	var targets []target
	for _, a := range articles {
		for _, l := range a.Links {
			if l.Kind != content.LinkExternal {
				continue
			}
			u := stripFragment(l.Dest)
			idx, ok := byURL[u]
			if !ok {
				idx = len(targets)
				byURL[u] = idx
				targets = append(targets, target{url: u})
			}
			targets[idx].sites = append(targets[idx].sites, site{path: a.Path, line: l.Line})
		}
	}
	return targets
}

// skipURL matches a URL against the configured skip patterns. A bare
// pattern matches the host and its subdomains, a pattern with a slash
// matches anywhere in the URL.
func (c *Checker) skipURL(rawURL string) bool {
	var host string
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Hostname()
	}
	for _, p := range c.opts.Skip {
		if strings.Contains(p, "/") {
			if strings.Contains(rawURL, p) {
				return true
			}
			continue
		}
		if host == p || strings.HasSuffix(host, "."+p) {
			return true
		}
	}
	return false
}

func (c *Checker) probe(ctx context.Context, rawURL string) probeResult {
	now := time.Now()
	if c.opts.Cache != nil {
		if e, ok := c.opts.Cache.Get(rawURL, now); ok {
			res := probeResult{Status: e.Status, OK: e.OK, Cached: true}
			if e.Error != "" {
				res.Err = fmt.Errorf("%s (cached)", e.Error)
			}
			return res
		}
	}

	res := c.fetch(ctx, rawURL)

	if c.opts.Cache != nil {
		e := Entry{URL: rawURL, Status: res.Status, OK: res.OK, CheckedAt: now}
		if res.Err != nil {
			e.Error = res.Err.Error()
		}
		c.opts.Cache.Put(e)
	}
	return res
}

// fetch probes one URL with retries. HEAD first, with a ranged GET
// fallback for hosts that reject HEAD.
func (c *Checker) fetch(ctx context.Context, rawURL string) probeResult {
	maxAttempts := c.opts.MaxRetries + 1

	var last probeResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.backoffFor(attempt - 1)):
			case <-ctx.Done():
				return probeResult{Err: ctx.Err()}
			}
		}

		if err := c.waitForHost(ctx, rawURL); err != nil {
			return probeResult{Err: err}
		}

		status, err := c.request(ctx, http.MethodHead, rawURL)
		if err == nil && headRejected(status) {
			status, err = c.request(ctx, http.MethodGet, rawURL)
		}

		last = probeResult{Status: status, Err: err}
		if err == nil && !transientStatus(status) {
			break
		}
	}

	last.OK = last.Err == nil && last.Status < 400
	return last
}

func (c *Checker) request(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "*/*")
	if method == http.MethodGet {
		// Only the status matters, keep the fallback cheap.
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	status := resp.StatusCode
	if status == http.StatusPartialContent {
		status = http.StatusOK
	}
	return status, nil
}

// waitForHost blocks on the per-host rate limiter, creating it on first
// contact with the host.
func (c *Checker) waitForHost(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	host := u.Hostname()

	c.mu.Lock()
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(c.opts.PerHost, c.opts.Burst)
		c.limiters[host] = lim
	}
	c.mu.Unlock()

	return lim.Wait(ctx)
}

func (c *Checker) backoffFor(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * c.opts.Backoff
}

// headRejected reports statuses where a host refuses HEAD but may well
// serve GET.
func headRejected(status int) bool {
	switch status {
	case http.StatusMethodNotAllowed, http.StatusNotImplemented, http.StatusForbidden:
		return true
	}
	return false
}

// transientStatus reports statuses worth retrying.
func transientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// severityForStatus grades a failing status. A definite miss is an
// error, throttling and server hiccups only warn.
func severityForStatus(status int) check.Severity {
	switch status {
	case http.StatusNotFound, http.StatusGone:
		return check.SeverityError
	default:
		return check.SeverityWarning
	}
}

func stripFragment(rawURL string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
