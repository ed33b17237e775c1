// Package crawler provides HTTP fetching for source pages with retry,
// backoff, per-site rate limiting, and robots.txt compliance.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"printwatch/internal/config"
)

// maxBodyBytes limits how much of a fetched page is read.
const maxBodyBytes = 4 * 1024 * 1024 // 4 MB

// ErrRobotsDisallowed indicates robots.txt forbids fetching the URL.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// FetchErrorKind classifies fetch failures for the run report.
type FetchErrorKind string

// Fetch failure kinds.
const (
	KindTimeout FetchErrorKind = "timeout"
	KindHTTP    FetchErrorKind = "http"
	KindNetwork FetchErrorKind = "network"
	KindBlocked FetchErrorKind = "blocked"
)

// FetchError is a typed fetch failure. The orchestrator records it against
// the site; it never aborts the run.
type FetchError struct {
	URL    string
	Kind   FetchErrorKind
	Status int
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Kind == KindHTTP {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.Status)
	}

	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves raw page content with config-driven retry logic.
type Fetcher struct {
	client      *http.Client
	retryPolicy *config.RetryPolicy
	userAgents  *agentPool
	limiter     *rateLimiter
	robots      *RobotsChecker
}

// NewFetcher creates a fetcher. The robots checker may be nil when
// robots.txt compliance is disabled.
func NewFetcher(retry *config.RetryPolicy, userAgents []string, robots *RobotsChecker) *Fetcher {
	return &Fetcher{
		// Timeouts come from the per-request context in fetchOnce; a
		// client-level timeout would cap per-site overrides longer than
		// the global one.
		client:      &http.Client{},
		retryPolicy: retry,
		userAgents:  newAgentPool(userAgents),
		limiter:     newRateLimiter(),
		robots:      robots,
	}
}

// Fetch retrieves the site's page content. Transient failures (network
// errors, timeouts, 408/429/5xx) are retried with exponential backoff up to
// the policy limit; permanent failures (other 4xx, malformed URL) are not.
func (f *Fetcher) Fetch(ctx context.Context, site *config.SiteConfig) (string, error) {
	parsed, err := url.Parse(site.URL)
	if err != nil || parsed.Host == "" {
		return "", &FetchError{URL: site.URL, Kind: KindNetwork, Err: fmt.Errorf("malformed url: %w", err)}
	}

	userAgent := f.userAgents.next()

	if f.robots != nil {
		allowed, robotsErr := f.robots.IsAllowed(ctx, site.URL, userAgent)
		if robotsErr == nil && !allowed {
			return "", &FetchError{URL: site.URL, Kind: KindBlocked, Err: ErrRobotsDisallowed}
		}
		// A failed robots.txt lookup does not block the fetch.
	}

	var lastErr *FetchError

	for attempt := 1; attempt <= f.retryPolicy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, f.retryPolicy.GetRetryDelay(attempt)); err != nil {
				return "", &FetchError{URL: site.URL, Kind: KindTimeout, Err: err}
			}
		}

		if err := f.limiter.wait(ctx, parsed.Host, f.minInterval(site)); err != nil {
			return "", &FetchError{URL: site.URL, Kind: KindTimeout, Err: err}
		}

		content, fetchErr := f.fetchOnce(ctx, site, userAgent)
		if fetchErr == nil {
			return content, nil
		}

		lastErr = fetchErr

		if !fetchErr.retryable() {
			break
		}
	}

	return "", lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, site *config.SiteConfig, userAgent string) (string, *FetchError) {
	reqCtx := ctx

	if timeout := site.Timeout(f.retryPolicy.GetTimeout()); timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, site.URL, http.NoBody)
	if err != nil {
		return "", &FetchError{URL: site.URL, Kind: KindNetwork, Err: err}
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		kind := KindNetwork
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			kind = KindTimeout
		}

		return "", &FetchError{URL: site.URL, Kind: kind, Err: err}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: site.URL, Kind: KindHTTP, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &FetchError{URL: site.URL, Kind: KindNetwork, Err: err}
	}

	return string(body), nil
}

// minInterval combines the configured per-site interval with the
// Crawl-delay advertised by the site's robots.txt, whichever is longer.
func (f *Fetcher) minInterval(site *config.SiteConfig) time.Duration {
	interval := site.MinInterval()

	if f.robots != nil {
		if delay := f.robots.CrawlDelay(site.URL); delay > interval {
			interval = delay
		}
	}

	return interval
}

// retryable reports whether the failure is transient.
func (e *FetchError) retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout:
		return true
	case KindHTTP:
		return e.Status == http.StatusRequestTimeout ||
			e.Status == http.StatusTooManyRequests ||
			e.Status >= http.StatusInternalServerError
	default:
		return false
	}
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
