package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// defaultRobotsCacheTTL bounds how long a host's robots.txt is reused.
const defaultRobotsCacheTTL = 24 * time.Hour

// maxRobotsBodyBytes limits the size of robots.txt responses we read.
const maxRobotsBodyBytes = 512 * 1024 // 512 KB

// RobotsChecker checks and caches robots.txt rules per host.
// A missing or unreadable robots.txt allows everything, which is the
// standard interpretation.
type RobotsChecker struct {
	httpClient *http.Client
	cache      map[string]*robotsCacheEntry // keyed by host
	mu         sync.RWMutex
	cacheTTL   time.Duration
}

type robotsCacheEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
	allowAll  bool
}

// NewRobotsChecker creates a checker using the given HTTP client.
func NewRobotsChecker(httpClient *http.Client) *RobotsChecker {
	return &RobotsChecker{
		httpClient: httpClient,
		cache:      make(map[string]*robotsCacheEntry),
		cacheTTL:   defaultRobotsCacheTTL,
	}
}

// IsAllowed reports whether the host's robots.txt permits fetching the URL
// as the given user agent.
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL, userAgent string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("robots: parse url: %w", err)
	}

	host := strings.ToLower(parsed.Host)
	if host == "" {
		return false, fmt.Errorf("robots: empty host in url %q", rawURL)
	}

	entry, err := r.getOrFetchEntry(ctx, host, parsed.Scheme)
	if err != nil {
		return false, err
	}

	if entry.allowAll {
		return true, nil
	}

	return entry.data.FindGroup(userAgent).Test(parsed.Path), nil
}

// CrawlDelay returns the Crawl-delay advertised for the URL's host, or 0.
// Only cached entries are consulted; CrawlDelay never issues a request.
func (r *RobotsChecker) CrawlDelay(rawURL string) time.Duration {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}

	r.mu.RLock()
	entry := r.cache[strings.ToLower(parsed.Host)]
	r.mu.RUnlock()

	if entry == nil || entry.allowAll {
		return 0
	}

	return entry.data.FindGroup("*").CrawlDelay
}

func (r *RobotsChecker) getOrFetchEntry(ctx context.Context, host, scheme string) (*robotsCacheEntry, error) {
	r.mu.RLock()
	entry := r.cache[host]
	r.mu.RUnlock()

	if entry != nil && time.Since(entry.fetchedAt) < r.cacheTTL {
		return entry, nil
	}

	entry = r.fetchEntry(ctx, host, scheme)

	r.mu.Lock()
	r.cache[host] = entry
	r.mu.Unlock()

	return entry, nil
}

func (r *RobotsChecker) fetchEntry(ctx context.Context, host, scheme string) *robotsCacheEntry {
	entry := &robotsCacheEntry{fetchedAt: time.Now(), allowAll: true}

	if scheme == "" {
		scheme = "https"
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if err != nil {
		return entry
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return entry
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return entry
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return entry
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return entry
	}

	entry.data = data
	entry.allowAll = false

	return entry
}
