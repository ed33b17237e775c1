package extractors

import (
	"regexp"

	"printwatch/internal/models"
)

// Criteria is a case-insensitive term filter applied to extracted listings.
// Terms are matched literally against every raw field value; one hit keeps
// the listing. Typical terms are CPV codes and trade keywords.
type Criteria struct {
	patterns []*regexp.Regexp
}

// NewCriteria compiles the terms. An empty term list yields a filter that
// keeps everything.
func NewCriteria(terms []string) *Criteria {
	patterns := make([]*regexp.Regexp, 0, len(terms))

	for _, term := range terms {
		patterns = append(patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(term)))
	}

	return &Criteria{patterns: patterns}
}

// Matches reports whether any term occurs in any of the listing's fields.
// A filter without terms matches every listing.
func (c *Criteria) Matches(listing *models.RawListing) bool {
	if len(c.patterns) == 0 {
		return true
	}

	for _, value := range listing.Fields {
		for _, pattern := range c.patterns {
			if pattern.MatchString(value) {
				return true
			}
		}
	}

	return false
}
