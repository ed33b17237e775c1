// Package config provides configuration management for the tender crawler.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Extraction rule strategies.
const (
	StrategySelector = "selector"
	StrategyPattern  = "pattern"
)

// Store backends.
const (
	StoreCSV    = "csv"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Configuration validation errors.
var (
	ErrNoSites              = errors.New("at least one site is required")
	ErrNoEnabledSites       = errors.New("at least one site must be enabled")
	ErrSiteMissingID        = errors.New("site id is required")
	ErrSiteMissingURL       = errors.New("site url is required")
	ErrDuplicateSiteID      = errors.New("site id occurs more than once")
	ErrUnknownStrategy      = errors.New("rule.strategy must be 'selector' or 'pattern'")
	ErrRuleMissingListing   = errors.New("rule.listing is required")
	ErrRuleMissingTitle     = errors.New("rule must map the 'title' field")
	ErrRuleMissingLink      = errors.New("rule must map the 'link' field")
	ErrInvalidMaxAttempts   = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay  = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidMultiplier    = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout       = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidConcurrency   = errors.New("fetch.concurrency must be at least 1")
	ErrNoUserAgents         = errors.New("fetch.user_agents must not be empty")
	ErrMissingTablePath     = errors.New("output.table_path is required")
	ErrMissingPagePath      = errors.New("output.page_path is required")
	ErrUnknownStoreBackend  = errors.New("store.backend must be 'csv', 'sqlite' or 'memory'")
	ErrMissingStorePath     = errors.New("store.path is required for csv and sqlite backends")
	ErrEmptyCriterion       = errors.New("criteria entries must not be blank")
	ErrInvalidRetentionDays = errors.New("retention.max_age_days must be non-negative")
	ErrInvalidLogLevel      = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Config is the complete crawler configuration.
type Config struct {
	Crawler CrawlerConfig `yaml:"crawler"`
}

// CrawlerConfig contains all crawler settings.
type CrawlerConfig struct {
	Sites     []SiteConfig    `yaml:"sites"`
	Criteria  []string        `yaml:"criteria"`
	Retry     RetryPolicy     `yaml:"retry"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Output    OutputConfig    `yaml:"output"`
	Store     StoreConfig     `yaml:"store"`
	Retention RetentionConfig `yaml:"retention"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteCriteria returns the criteria terms applied to the site's listings:
// the site's own list when it defines one, the crawler-wide list otherwise.
// An empty result disables filtering for that site.
func (c *CrawlerConfig) SiteCriteria(site *SiteConfig) []string {
	if len(site.Criteria) > 0 {
		return site.Criteria
	}

	return c.Criteria
}

// SiteConfig describes one source site and how to extract listings from it.
type SiteConfig struct {
	ID              string     `yaml:"id"`
	Name            string     `yaml:"name"`
	URL             string     `yaml:"url"`
	Enabled         bool       `yaml:"enabled"`
	Rule            RuleConfig `yaml:"rule"`
	Criteria        []string   `yaml:"criteria"`
	DefaultCurrency string     `yaml:"default_currency"`
	TimeoutSec      int        `yaml:"timeout_sec"`
	MinIntervalMs   int        `yaml:"min_interval_ms"`
}

// Timeout returns the per-site fetch timeout, falling back to the given default.
func (s *SiteConfig) Timeout(fallback time.Duration) time.Duration {
	if s.TimeoutSec > 0 {
		return time.Duration(s.TimeoutSec) * time.Second
	}

	return fallback
}

// MinInterval returns the minimum delay between requests to this site.
func (s *SiteConfig) MinInterval() time.Duration {
	return time.Duration(s.MinIntervalMs) * time.Millisecond
}

// Currency returns the site's default currency code, EUR if unset.
func (s *SiteConfig) Currency() string {
	if s.DefaultCurrency != "" {
		return s.DefaultCurrency
	}

	return "EUR"
}

// RuleConfig is the extraction rule descriptor for one site. The strategy
// tag selects which extractor implementation interprets the listing
// boundary and the per-field rules.
type RuleConfig struct {
	Strategy string               `yaml:"strategy"`
	Listing  string               `yaml:"listing"`
	Fields   map[string]FieldRule `yaml:"fields"`
}

// FieldRule locates one field inside a listing. Selector strategy uses
// Selector (+ optional Attr); pattern strategy uses Pattern with one
// capture group.
type FieldRule struct {
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr"`
	Pattern  string `yaml:"pattern"`
}

// RetryPolicy defines fetch retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// GetRetryDelay calculates the exponential backoff delay before the given
// attempt number (1-based; the first attempt has no delay).
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	if rp.MaxDelayMs > 0 && int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the per-request timeout.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// FetchConfig contains fetch-level settings shared by all sites.
type FetchConfig struct {
	UserAgents    []string `yaml:"user_agents"`
	RespectRobots bool     `yaml:"respect_robots"`
	Concurrency   int      `yaml:"concurrency"`
	RunTimeoutSec int      `yaml:"run_timeout_sec"`
}

// RunTimeout returns the run-level timeout, or 0 when unbounded.
func (f *FetchConfig) RunTimeout() time.Duration {
	return time.Duration(f.RunTimeoutSec) * time.Second
}

// OutputConfig defines where the interchange table and display page go.
type OutputConfig struct {
	TablePath    string `yaml:"table_path"`
	PagePath     string `yaml:"page_path"`
	CreateBackup bool   `yaml:"create_backup"`
}

// StoreConfig selects the persisted table backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// RetentionConfig controls purging of stale records. Zero keeps records
// forever; a positive value purges records whose last observation is older
// than that many days.
type RetentionConfig struct {
	MaxAgeDays int `yaml:"max_age_days"`
}

// MaxAge returns the retention window, or 0 when retention is disabled.
func (r *RetentionConfig) MaxAge() time.Duration {
	return time.Duration(r.MaxAgeDays) * 24 * time.Hour
}

// LockPath returns the path the run lock is derived from: the store path,
// since that is the resource the lock guards. The memory backend has no
// path, so the output table stands in for it.
func (c *CrawlerConfig) LockPath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}

	return c.Output.TablePath
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file, applies environment
// overrides, and validates it.
func Load(filepath string) (*Config, error) {
	// Optional .env next to the working directory; absence is not an error.
	_ = godotenv.Load()

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Crawler.Retry.MaxAttempts == 0 {
		c.Crawler.Retry = RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    500,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
			TimeoutSec:        15,
		}
	}

	if c.Crawler.Fetch.Concurrency == 0 {
		c.Crawler.Fetch.Concurrency = 4
	}

	if len(c.Crawler.Fetch.UserAgents) == 0 {
		c.Crawler.Fetch.UserAgents = []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Safari/605.1.15",
		}
	}

	if c.Crawler.Store.Backend == "" {
		c.Crawler.Store.Backend = StoreCSV
		if c.Crawler.Store.Path == "" {
			c.Crawler.Store.Path = c.Crawler.Output.TablePath
		}
	}

	if c.Crawler.Logging.Level == "" {
		c.Crawler.Logging.Level = "info"
	}
}

// applyEnvOverrides lets deployment environments relocate outputs without
// editing the versioned config.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PRINTWATCH_TABLE_PATH"); v != "" {
		c.Crawler.Output.TablePath = v
	}

	if v := os.Getenv("PRINTWATCH_PAGE_PATH"); v != "" {
		c.Crawler.Output.PagePath = v
	}

	if v := os.Getenv("PRINTWATCH_STORE_PATH"); v != "" {
		c.Crawler.Store.Path = v
	}
}

// Validate checks every structural invariant of the configuration.
// A validation failure is fatal before any fetch happens.
func (c *Config) Validate() error {
	if len(c.Crawler.Sites) == 0 {
		return ErrNoSites
	}

	enabledCount := 0
	seen := make(map[string]bool)

	for i := range c.Crawler.Sites {
		src := &c.Crawler.Sites[i]

		if src.ID == "" {
			return fmt.Errorf("%w: site[%d]", ErrSiteMissingID, i)
		}

		if seen[src.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateSiteID, src.ID)
		}

		seen[src.ID] = true

		if src.URL == "" {
			return fmt.Errorf("%w: site %q", ErrSiteMissingURL, src.ID)
		}

		if err := src.Rule.validate(); err != nil {
			return fmt.Errorf("site %q: %w", src.ID, err)
		}

		if err := validateCriteria(src.Criteria); err != nil {
			return fmt.Errorf("site %q: %w", src.ID, err)
		}

		if src.Enabled {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledSites
	}

	if err := validateCriteria(c.Crawler.Criteria); err != nil {
		return err
	}

	if c.Crawler.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Crawler.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Crawler.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidMultiplier
	}

	if c.Crawler.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Crawler.Fetch.Concurrency < 1 {
		return ErrInvalidConcurrency
	}

	if len(c.Crawler.Fetch.UserAgents) == 0 {
		return ErrNoUserAgents
	}

	if c.Crawler.Output.TablePath == "" {
		return ErrMissingTablePath
	}

	if c.Crawler.Output.PagePath == "" {
		return ErrMissingPagePath
	}

	switch c.Crawler.Store.Backend {
	case StoreCSV, StoreSQLite:
		if c.Crawler.Store.Path == "" {
			return ErrMissingStorePath
		}
	case StoreMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreBackend, c.Crawler.Store.Backend)
	}

	if c.Crawler.Retention.MaxAgeDays < 0 {
		return ErrInvalidRetentionDays
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Crawler.Logging.Level] {
		return ErrInvalidLogLevel
	}

	return nil
}

func validateCriteria(criteria []string) error {
	for i, term := range criteria {
		if strings.TrimSpace(term) == "" {
			return fmt.Errorf("%w: entry %d", ErrEmptyCriterion, i)
		}
	}

	return nil
}

func (r *RuleConfig) validate() error {
	switch r.Strategy {
	case StrategySelector, StrategyPattern:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownStrategy, r.Strategy)
	}

	if r.Listing == "" {
		return ErrRuleMissingListing
	}

	if _, ok := r.Fields["title"]; !ok {
		return ErrRuleMissingTitle
	}

	if _, ok := r.Fields["link"]; !ok {
		return ErrRuleMissingLink
	}

	if r.Strategy == StrategyPattern {
		if _, err := regexp.Compile(r.Listing); err != nil {
			return fmt.Errorf("rule.listing is invalid regex: %w", err)
		}

		for name, field := range r.Fields {
			if field.Pattern == "" {
				return fmt.Errorf("rule.fields.%s.pattern is required for pattern strategy", name)
			}

			if _, err := regexp.Compile(field.Pattern); err != nil {
				return fmt.Errorf("rule.fields.%s.pattern is invalid regex: %w", name, err)
			}
		}
	}

	if r.Strategy == StrategySelector {
		for name, field := range r.Fields {
			if field.Selector == "" {
				return fmt.Errorf("rule.fields.%s.selector is required for selector strategy", name)
			}
		}
	}

	return nil
}

// EnabledSites returns only the sites enabled for crawling.
func (c *Config) EnabledSites() []SiteConfig {
	var enabled []SiteConfig

	for _, src := range c.Crawler.Sites {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	return enabled
}

// String returns a short description of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Sites: %d, MaxAttempts: %d, Store: %s, Table: %s}",
		len(c.Crawler.Sites),
		c.Crawler.Retry.MaxAttempts,
		c.Crawler.Store.Backend,
		c.Crawler.Output.TablePath,
	)
}
