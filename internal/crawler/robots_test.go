package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const testRobotsBody = `User-agent: *
Disallow: /private/
Crawl-delay: 2
`

func robotsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte(body))
	}))

	t.Cleanup(server.Close)

	return server
}

func TestRobots_DisallowedPath(t *testing.T) {
	server := robotsServer(t, testRobotsBody)
	checker := NewRobotsChecker(server.Client())

	allowed, err := checker.IsAllowed(context.Background(), server.URL+"/private/page", "agent")
	if err != nil {
		t.Fatalf("IsAllowed failed: %v", err)
	}

	if allowed {
		t.Error("expected /private/ to be disallowed")
	}

	allowed, err = checker.IsAllowed(context.Background(), server.URL+"/public/page", "agent")
	if err != nil {
		t.Fatalf("IsAllowed failed: %v", err)
	}

	if !allowed {
		t.Error("expected /public/ to be allowed")
	}
}

func TestRobots_MissingFileAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	checker := NewRobotsChecker(server.Client())

	allowed, err := checker.IsAllowed(context.Background(), server.URL+"/anything", "agent")
	if err != nil {
		t.Fatalf("IsAllowed failed: %v", err)
	}

	if !allowed {
		t.Error("missing robots.txt must allow everything")
	}
}

func TestRobots_CachesPerHost(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(testRobotsBody))
	}))
	defer server.Close()

	checker := NewRobotsChecker(server.Client())

	for i := 0; i < 3; i++ {
		if _, err := checker.IsAllowed(context.Background(), server.URL+"/page", "agent"); err != nil {
			t.Fatalf("IsAllowed failed: %v", err)
		}
	}

	if calls.Load() != 1 {
		t.Errorf("expected a single robots.txt fetch, got %d", calls.Load())
	}
}

func TestRobots_CrawlDelay(t *testing.T) {
	server := robotsServer(t, testRobotsBody)
	checker := NewRobotsChecker(server.Client())

	// Cache-only lookup: before any IsAllowed call the delay is unknown.
	if delay := checker.CrawlDelay(server.URL + "/page"); delay != 0 {
		t.Errorf("expected 0 before first fetch, got %v", delay)
	}

	if _, err := checker.IsAllowed(context.Background(), server.URL+"/page", "agent"); err != nil {
		t.Fatalf("IsAllowed failed: %v", err)
	}

	if delay := checker.CrawlDelay(server.URL + "/page"); delay != 2*time.Second {
		t.Errorf("expected 2s crawl delay, got %v", delay)
	}
}

func TestFetch_RobotsBlocked(t *testing.T) {
	server := robotsServer(t, testRobotsBody)

	f := NewFetcher(testRetryPolicy(), []string{"agent"}, NewRobotsChecker(server.Client()))

	_, err := f.Fetch(context.Background(), testSite(server.URL+"/private/tenders"))
	if err == nil {
		t.Fatal("expected fetch to be blocked")
	}

	fetchErr, ok := err.(*FetchError)
	if !ok {
		t.Fatalf("expected *FetchError, got %T", err)
	}

	if fetchErr.Kind != KindBlocked {
		t.Errorf("expected blocked kind, got %s", fetchErr.Kind)
	}
}
