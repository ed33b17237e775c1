package normalizer

import (
	"regexp"
	"strings"
	"time"
)

// Numeric layouts accepted for tender dates. Dotted forms are the German
// convention (day first); slash forms are excluded on purpose: "03/04/2024"
// is ambiguous between day-first and month-first and must not be guessed.
var dateLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"2006-01-02",
	"02.01.06",
}

// germanMonths maps German month names (and common abbreviations) to their
// English equivalents so time.Parse can handle written-out dates.
var germanMonths = map[string]string{
	"januar":    "January",
	"februar":   "February",
	"märz":      "March",
	"maerz":     "March",
	"april":     "April",
	"mai":       "May",
	"juni":      "June",
	"juli":      "July",
	"august":    "August",
	"september": "September",
	"oktober":   "October",
	"november":  "November",
	"dezember":  "December",
	"okt":       "Oct",
	"dez":       "Dec",
}

var writtenDatePattern = regexp.MustCompile(`(\d{1,2})\.\s*([A-Za-zäöüÄÖÜ]+)\s+(\d{4})`)

// ParseDate converts a raw date fragment into a calendar date, or nil when
// the value is absent, ambiguous, or unparseable. It never guesses:
// anything not matching a known unambiguous format comes back nil.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	// Fragments often carry a label, e.g. "Frist: 01.03.2024".
	if idx := strings.LastIndex(raw, ": "); idx >= 0 {
		raw = strings.TrimSpace(raw[idx+2:])
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			date := t.UTC()

			return &date
		}
	}

	// Written-out German form: "1. März 2024".
	if match := writtenDatePattern.FindStringSubmatch(raw); match != nil {
		month, ok := germanMonths[strings.ToLower(match[2])]
		if !ok {
			return nil
		}

		rebuilt := match[1] + " " + month + " " + match[3]
		if t, err := time.Parse("2 January 2006", rebuilt); err == nil {
			date := t.UTC()

			return &date
		}
	}

	return nil
}
