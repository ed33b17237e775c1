// Package merger combines a run's normalized records with the persisted
// table without duplication or data loss.
package merger

import (
	"sort"
	"time"

	"printwatch/internal/models"
)

// Merge applies the incoming records to the table, keyed by record ID.
//
// New IDs are inserted with first_seen = last_seen = runStamp. Existing
// IDs get their mutable fields refreshed and last_seen bumped; first_seen
// is never touched. Records absent from the incoming set stay as they are.
//
// Incoming records are sorted by (source site, id) before applying, so the
// resulting table is independent of fetch completion order. The same ID
// appearing twice in one run collapses to repeated updates; the record is
// counted once, under whichever of new or updated applied first.
func Merge(table *models.Table, incoming []models.TenderRecord, runStamp time.Time) models.MergeStats {
	sorted := make([]models.TenderRecord, len(incoming))
	copy(sorted, incoming)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SourceSite != sorted[j].SourceSite {
			return sorted[i].SourceSite < sorted[j].SourceSite
		}

		return sorted[i].ID < sorted[j].ID
	})

	stats := models.MergeStats{}
	touched := make(map[string]bool, len(sorted))

	for i := range sorted {
		rec := sorted[i]

		existing := table.Get(rec.ID)
		if existing == nil {
			rec.FirstSeenRun = runStamp
			rec.LastSeenRun = runStamp
			table.Put(&rec)

			stats.New++
			touched[rec.ID] = true

			continue
		}

		existing.Title = rec.Title
		existing.Date = rec.Date
		existing.Link = rec.Link
		existing.Budget = rec.Budget
		existing.Address = rec.Address
		existing.LastSeenRun = runStamp

		if !touched[rec.ID] {
			stats.Updated++
			touched[rec.ID] = true
		}
	}

	stats.Untouched = table.Len() - stats.New - stats.Updated

	return stats
}

// ApplyRetention purges records whose last observation is older than
// maxAge, measured from runStamp. A zero maxAge disables purging; stale
// records then stay visible forever with their last known last_seen.
func ApplyRetention(table *models.Table, runStamp time.Time, maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}

	cutoff := runStamp.Add(-maxAge)
	purged := 0

	for _, rec := range table.Records() {
		if rec.LastSeenRun.Before(cutoff) {
			table.Delete(rec.ID)

			purged++
		}
	}

	return purged
}
