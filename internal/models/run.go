package models

import "time"

// RunStatus is the overall outcome of one pipeline run.
type RunStatus string

// Run statuses.
const (
	RunCompleted      RunStatus = "completed"
	RunPartialFailure RunStatus = "partial_failure"
	RunFailed         RunStatus = "failed"
)

// SiteStatus is the outcome of a single site within a run.
type SiteStatus string

// Site statuses.
const (
	SiteOK          SiteStatus = "ok"
	SiteFetchFailed SiteStatus = "fetch_failed"
	SiteParseFailed SiteStatus = "parse_failed"
)

// SiteOutcome records how one site's pipeline went during a run.
type SiteOutcome struct {
	SiteID            string     `json:"siteId"`
	Status            SiteStatus `json:"status"`
	ListingsFound     int        `json:"listingsFound"`
	ListingsDropped   int        `json:"listingsDropped"`
	ListingsFiltered  int        `json:"listingsFiltered"`
	UnparseableFields int        `json:"unparseableFields"`
	Error             string     `json:"error,omitempty"`
	Duration          time.Duration
}

// MergeStats summarizes one merge of incoming records into the table.
type MergeStats struct {
	New       int `json:"new"`
	Updated   int `json:"updated"`
	Untouched int `json:"untouched"`
	Purged    int `json:"purged"`
}

// RunResult aggregates the per-site outcomes and merge totals of one run.
type RunResult struct {
	RunID     string        `json:"runId"`
	Timestamp time.Time     `json:"timestamp"`
	Status    RunStatus     `json:"status"`
	Sites     []SiteOutcome `json:"sites"`
	Stats     MergeStats    `json:"stats"`
	Duration  time.Duration `json:"duration"`
}

// FailedSites returns the number of sites that did not reach SiteOK.
func (r *RunResult) FailedSites() int {
	failed := 0

	for _, s := range r.Sites {
		if s.Status != SiteOK {
			failed++
		}
	}

	return failed
}

// ExitCode maps the run status to a process exit status for the
// invoking scheduler: 0 completed, 1 failed, 2 partial failure.
func (r *RunResult) ExitCode() int {
	switch r.Status {
	case RunCompleted:
		return 0
	case RunPartialFailure:
		return 2
	default:
		return 1
	}
}
