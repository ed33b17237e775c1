package normalizer

import (
	"net/url"
	"strings"
)

// ResolveLink converts a possibly relative href into an absolute URL using
// the page's own URL as base. Tracking parameters are stripped so the same
// listing resolves to the same link across runs. Invalid input yields nil.
func ResolveLink(baseURL, raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return nil
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil
	}

	if resolved.Host == "" {
		return nil
	}

	dropTrackingParams(resolved)

	link := resolved.String()

	return &link
}

// dropTrackingParams removes utm_* query markers in place.
func dropTrackingParams(u *url.URL) {
	if u.RawQuery == "" {
		return
	}

	params := u.Query()
	for key := range params {
		if strings.HasPrefix(key, "utm_") {
			delete(params, key)
		}
	}

	u.RawQuery = params.Encode()
}
