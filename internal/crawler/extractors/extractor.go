// Package extractors turns raw page content into candidate tender listings
// using the per-site extraction rule descriptors.
package extractors

import (
	"fmt"

	"printwatch/internal/config"
	"printwatch/internal/models"
)

// Stats counts what happened while extracting one page.
type Stats struct {
	Found   int
	Dropped int
}

// Extractor produces raw listings from page content in document order.
// Implementations isolate per-listing failures: a broken listing is
// counted as dropped and never aborts the rest of the page.
type Extractor interface {
	Extract(content, pageURL string) ([]models.RawListing, Stats, error)
}

// New builds the extractor matching the site's rule strategy. An unknown
// strategy or an uncompilable rule is a configuration error.
func New(site *config.SiteConfig) (Extractor, error) {
	switch site.Rule.Strategy {
	case config.StrategySelector:
		return newSelectorExtractor(site)
	case config.StrategyPattern:
		return newPatternExtractor(site)
	default:
		return nil, fmt.Errorf("%w: got %q for site %q", config.ErrUnknownStrategy, site.Rule.Strategy, site.ID)
	}
}

// hasRequiredFields reports whether a listing carries the fields identity
// derivation depends on. Listings without them are dropped, not errored.
func hasRequiredFields(listing *models.RawListing) bool {
	return listing.Field(models.FieldTitle) != "" && listing.Field(models.FieldLink) != ""
}
