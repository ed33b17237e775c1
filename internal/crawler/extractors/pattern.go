package extractors

import (
	"fmt"
	"regexp"

	"printwatch/internal/config"
	"printwatch/internal/models"
)

// PatternExtractor extracts listings with regular expressions: the listing
// pattern slices the page into candidate fragments, field patterns capture
// values inside each fragment. Used for sites whose markup is too irregular
// for structural selectors.
type PatternExtractor struct {
	siteID  string
	listing *regexp.Regexp
	fields  map[string]*regexp.Regexp
}

func newPatternExtractor(site *config.SiteConfig) (*PatternExtractor, error) {
	listing, err := regexp.Compile(site.Rule.Listing)
	if err != nil {
		return nil, fmt.Errorf("site %q: rule.listing: %w", site.ID, err)
	}

	fields := make(map[string]*regexp.Regexp, len(site.Rule.Fields))

	for name, rule := range site.Rule.Fields {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("site %q: rule.fields.%s: %w", site.ID, name, err)
		}

		fields[name] = re
	}

	return &PatternExtractor{
		siteID:  site.ID,
		listing: listing,
		fields:  fields,
	}, nil
}

// Extract slices the page with the listing pattern and captures each field
// from its fragment. A fragment where no field pattern matches anything
// required is dropped and counted.
func (e *PatternExtractor) Extract(content, pageURL string) ([]models.RawListing, Stats, error) {
	fragments := e.listing.FindAllString(content, -1)

	var listings []models.RawListing

	stats := Stats{Found: len(fragments)}

	for _, fragment := range fragments {
		listing := models.RawListing{
			SourceSite: e.siteID,
			PageURL:    pageURL,
			Fields:     make(map[string]string, len(e.fields)),
		}

		for name, re := range e.fields {
			if match := re.FindStringSubmatch(fragment); len(match) > 1 {
				listing.Fields[name] = match[1]
			}
		}

		if !hasRequiredFields(&listing) {
			stats.Dropped++

			continue
		}

		listings = append(listings, listing)
	}

	return listings, stats, nil
}
