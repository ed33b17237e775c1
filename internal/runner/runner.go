// Package runner orchestrates one complete run of the crawl pipeline
// across all configured sites.
package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"printwatch/internal/config"
	"printwatch/internal/crawler"
	"printwatch/internal/crawler/extractors"
	"printwatch/internal/logger"
	"printwatch/internal/merger"
	"printwatch/internal/models"
	"printwatch/internal/normalizer"
	"printwatch/internal/store"
)

// Writer produces the display artifacts after a successful merge.
type Writer interface {
	Write(table *models.Table, result *models.RunResult) error
}

// Runner drives fetch, extract, normalize, merge and write for one run.
type Runner struct {
	cfg     *config.Config
	store   store.Store
	writer  Writer
	fetcher *crawler.Fetcher
	lock    *store.RunLock
	log     *logger.Logger
}

// siteResult carries one site pipeline's output back to the collector.
type siteResult struct {
	outcome models.SiteOutcome
	records []models.TenderRecord
}

// New creates a runner. The lock may be nil when mutual exclusion is
// handled elsewhere (tests).
func New(cfg *config.Config, st store.Store, writer Writer, lock *store.RunLock, log *logger.Logger) *Runner {
	var robots *crawler.RobotsChecker
	if cfg.Crawler.Fetch.RespectRobots {
		robots = crawler.NewRobotsChecker(&http.Client{Timeout: cfg.Crawler.Retry.GetTimeout()})
	}

	return &Runner{
		cfg:     cfg,
		store:   st,
		writer:  writer,
		fetcher: crawler.NewFetcher(&cfg.Crawler.Retry, cfg.Crawler.Fetch.UserAgents, robots),
		lock:    lock,
		log:     log,
	}
}

// Run executes one complete crawl. Site failures degrade the run to
// partial failure; only a configuration error or every site failing makes
// the run fail. Gathered records are always merged and written.
func (r *Runner) Run(ctx context.Context) (*models.RunResult, error) {
	// Second precision, matching the serialized table stamps.
	started := time.Now().UTC().Truncate(time.Second)

	result := &models.RunResult{
		RunID:     uuid.NewString(),
		Timestamp: started,
	}

	sites := r.cfg.EnabledSites()
	if len(sites) == 0 {
		result.Status = models.RunFailed

		return result, config.ErrNoEnabledSites
	}

	// The run timeout bounds only the fetch fan-out. Merge and write run
	// on the parent context so records gathered before the deadline still
	// reach the table.
	fetchCtx := ctx

	if timeout := r.cfg.Crawler.Fetch.RunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, timeout)

		defer cancel()
	}

	r.log.Info("run started", "run_id", result.RunID, "sites", len(sites))

	// Fan site pipelines out over a bounded pool. Each pipeline is
	// independent; results only meet again at the merge step.
	results := make([]siteResult, len(sites))
	pool := newWorkerPool(r.cfg.Crawler.Fetch.Concurrency)

	for i := range sites {
		i := i
		site := sites[i]

		pool.submit(func() {
			results[i] = r.runSite(fetchCtx, &site)
		})
	}

	pool.wait()

	// Deterministic merge order regardless of completion order.
	sort.Slice(results, func(a, b int) bool {
		return results[a].outcome.SiteID < results[b].outcome.SiteID
	})

	var incoming []models.TenderRecord

	succeeded := 0

	for _, sr := range results {
		result.Sites = append(result.Sites, sr.outcome)

		if sr.outcome.Status == models.SiteOK {
			succeeded++

			incoming = append(incoming, sr.records...)
		}
	}

	if succeeded == 0 {
		result.Status = models.RunFailed
		result.Duration = time.Since(started)

		r.log.Error("run failed: no site succeeded", "run_id", result.RunID)

		return result, fmt.Errorf("all %d sites failed", len(sites))
	}

	if succeeded == len(sites) {
		result.Status = models.RunCompleted
	} else {
		result.Status = models.RunPartialFailure
	}

	if err := r.mergeAndWrite(ctx, result, incoming); err != nil {
		result.Status = models.RunFailed
		result.Duration = time.Since(started)

		return result, err
	}

	result.Duration = time.Since(started)

	r.log.Info("run finished",
		"run_id", result.RunID,
		"status", string(result.Status),
		"new", result.Stats.New,
		"updated", result.Stats.Updated,
		"duration", result.Duration.Round(time.Millisecond).String(),
	)

	return result, nil
}

// runSite runs one site's fetch→extract→normalize pipeline. All failures
// are captured in the outcome; nothing escapes to abort the run.
func (r *Runner) runSite(ctx context.Context, site *config.SiteConfig) siteResult {
	log := r.log.With("site", site.ID)
	started := time.Now()

	outcome := models.SiteOutcome{SiteID: site.ID}

	extractor, err := extractors.New(site)
	if err != nil {
		// Rule errors are caught by config validation; reaching this
		// means the descriptor regressed at runtime.
		log.Error("extractor setup failed", "error", err)

		outcome.Status = models.SiteParseFailed
		outcome.Error = err.Error()
		outcome.Duration = time.Since(started)

		return siteResult{outcome: outcome}
	}

	content, err := r.fetcher.Fetch(ctx, site)
	if err != nil {
		var fetchErr *crawler.FetchError
		if errors.As(err, &fetchErr) {
			log.Warn("fetch failed", "kind", string(fetchErr.Kind), "error", err)
		} else {
			log.Warn("fetch failed", "error", err)
		}

		outcome.Status = models.SiteFetchFailed
		outcome.Error = err.Error()
		outcome.Duration = time.Since(started)

		return siteResult{outcome: outcome}
	}

	listings, stats, err := extractor.Extract(content, site.URL)
	if err != nil {
		log.Warn("extraction failed", "error", err)

		outcome.Status = models.SiteParseFailed
		outcome.Error = err.Error()
		outcome.Duration = time.Since(started)

		return siteResult{outcome: outcome}
	}

	outcome.ListingsFound = stats.Found
	outcome.ListingsDropped = stats.Dropped

	criteria := extractors.NewCriteria(r.cfg.Crawler.SiteCriteria(site))
	norm := normalizer.New(site.Currency())
	records := make([]models.TenderRecord, 0, len(listings))

	for i := range listings {
		if !criteria.Matches(&listings[i]) {
			outcome.ListingsFiltered++

			continue
		}

		rec, unparseable := norm.Normalize(&listings[i])
		outcome.UnparseableFields += unparseable

		records = append(records, rec)
	}

	outcome.Status = models.SiteOK
	outcome.Duration = time.Since(started)

	log.Info("site done",
		"found", stats.Found,
		"dropped", stats.Dropped,
		"filtered", outcome.ListingsFiltered,
		"unparseable_fields", outcome.UnparseableFields,
	)

	return siteResult{outcome: outcome, records: records}
}

// mergeAndWrite loads the persisted table, merges the run's records, and
// persists plus renders the result, under the run lock.
func (r *Runner) mergeAndWrite(ctx context.Context, result *models.RunResult, incoming []models.TenderRecord) error {
	if r.lock != nil {
		if err := r.lock.Acquire(); err != nil {
			return err
		}

		defer func() {
			_ = r.lock.Release()
		}()
	}

	table, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load table: %w", err)
	}

	result.Stats = merger.Merge(table, incoming, result.Timestamp)
	result.Stats.Purged = merger.ApplyRetention(table, result.Timestamp, r.cfg.Crawler.Retention.MaxAge())

	if err := r.store.Save(ctx, table, result); err != nil {
		return fmt.Errorf("save table: %w", err)
	}

	if r.writer != nil {
		if err := r.writer.Write(table, result); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	return nil
}
