package extractors

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"printwatch/internal/config"
	"printwatch/internal/models"
)

// SelectorExtractor extracts listings with CSS selectors: one selector
// scopes each listing, per-field selectors locate values inside it.
type SelectorExtractor struct {
	siteID  string
	listing string
	fields  map[string]config.FieldRule
}

func newSelectorExtractor(site *config.SiteConfig) (*SelectorExtractor, error) {
	return &SelectorExtractor{
		siteID:  site.ID,
		listing: site.Rule.Listing,
		fields:  site.Rule.Fields,
	}, nil
}

// Extract parses the page and pulls one raw listing per listing-boundary
// match, in document order. goquery tolerates malformed markup, so a
// partial page still yields whatever listings survive.
func (e *SelectorExtractor) Extract(content, pageURL string) ([]models.RawListing, Stats, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, Stats{}, fmt.Errorf("parse html: %w", err)
	}

	var listings []models.RawListing

	var stats Stats

	doc.Find(e.listing).Each(func(_ int, sel *goquery.Selection) {
		stats.Found++

		listing := models.RawListing{
			SourceSite: e.siteID,
			PageURL:    pageURL,
			Fields:     make(map[string]string, len(e.fields)),
		}

		for name, rule := range e.fields {
			listing.Fields[name] = extractField(sel, rule)
		}

		if !hasRequiredFields(&listing) {
			stats.Dropped++

			return
		}

		listings = append(listings, listing)
	})

	return listings, stats, nil
}

func extractField(sel *goquery.Selection, rule config.FieldRule) string {
	target := sel.Find(rule.Selector).First()
	if target.Length() == 0 {
		return ""
	}

	if rule.Attr != "" {
		value, _ := target.Attr(rule.Attr)

		return strings.TrimSpace(value)
	}

	return strings.TrimSpace(target.Text())
}
