// Package normalizer converts raw listing fields into canonical typed
// values. Every field parser is pure and total: bad input becomes a nil
// field, never an error and never a dropped record.
package normalizer

import (
	"printwatch/internal/models"
	"printwatch/pkg/utils"
)

// Normalizer assembles typed tender records from raw listings.
type Normalizer struct {
	defaultCurrency string
}

// New creates a normalizer using the site's default currency for budgets
// that name none.
func New(defaultCurrency string) *Normalizer {
	return &Normalizer{defaultCurrency: defaultCurrency}
}

// CleanText collapses whitespace in a raw text fragment.
func CleanText(raw string) string {
	return utils.NormalizeWhitespace(raw)
}

// Normalize builds a TenderRecord from one raw listing. The returned count
// is the number of optional fields present in the listing that did not
// parse; those fields are nil on the record.
func (n *Normalizer) Normalize(listing *models.RawListing) (models.TenderRecord, int) {
	unparseable := 0

	title := CleanText(listing.Field(models.FieldTitle))

	link := ResolveLink(listing.PageURL, listing.Field(models.FieldLink))
	if link == nil && listing.Field(models.FieldLink) != "" {
		unparseable++
	}

	date := ParseDate(listing.Field(models.FieldDate))
	if date == nil && listing.Field(models.FieldDate) != "" {
		unparseable++
	}

	budget := ParseCurrency(listing.Field(models.FieldBudget), n.defaultCurrency)
	if budget == nil && listing.Field(models.FieldBudget) != "" {
		unparseable++
	}

	var address *string
	if cleaned := CleanText(listing.Field(models.FieldAddress)); cleaned != "" {
		address = &cleaned
	}

	linkStr := ""
	if link != nil {
		linkStr = *link
	}

	return models.TenderRecord{
		ID:         models.RecordID(listing.SourceSite, linkStr, title),
		Title:      title,
		Date:       date,
		Link:       link,
		Budget:     budget,
		Address:    address,
		SourceSite: listing.SourceSite,
	}, unparseable
}
