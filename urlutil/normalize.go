// Package urlutil canonicalizes URLs so that the same page always maps
// to the same queue and document row.
package urlutil

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"gclid":        {},
	"fbclid":       {},
}

var multiSlashRe = regexp.MustCompile(`/+`)

// Normalize canonicalizes a raw URL: lowercase scheme and host, https
// default, collapsed path slashes, tracking parameters removed, blank
// query values dropped, fragment stripped.
func Normalize(rawURL string) (string, error) {
	parts, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("failed to parse URL %q: %w", rawURL, err)
	}

	scheme := strings.ToLower(parts.Scheme)
	if scheme == "" {
		scheme = "https"
	}

	host := strings.ToLower(parts.Host)
	path := parts.Path
	if host == "" && path != "" {
		// Schemeless input like "example.com/a": the first segment is
		// really the host.
		trimmed := strings.TrimPrefix(path, "/")
		slash := strings.Index(trimmed, "/")
		if slash == -1 {
			host = strings.ToLower(trimmed)
			path = ""
		} else {
			host = strings.ToLower(trimmed[:slash])
			path = trimmed[slash:]
		}
	}
	if path == "" {
		path = "/"
	}
	path = multiSlashRe.ReplaceAllString(path, "/")

	query := filterQuery(parts.Query())

	u := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     path,
		RawQuery: query,
	}
	return u.String(), nil
}

func filterQuery(values url.Values) string {
	// url.Values.Encode sorts by key, so the canonical form is stable
	// regardless of input parameter order.
	filtered := url.Values{}
	for k, vs := range values {
		if _, tracked := trackingParams[strings.ToLower(k)]; tracked {
			continue
		}
		for _, v := range vs {
			if v == "" {
				continue
			}
			filtered.Add(k, v)
		}
	}
	return filtered.Encode()
}

// Multi-part public suffixes the registrable-domain split knows about.
// Intentionally small; swap in a full PSL dataset for production use.
var multiPartSuffixes = map[string]struct{}{
	"co.uk":  {},
	"org.uk": {},
	"ac.uk":  {},
	"gov.uk": {},
	"com.au": {},
	"net.au": {},
	"org.au": {},
	"co.jp":  {},
}

// RegistrableDomain derives the domain a single registrant owns:
// public suffix plus one label.
func RegistrableDomain(rawURL string) string {
	host := Host(rawURL)
	if host == "" {
		return ""
	}

	labels := strings.Split(host, ".")
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	if len(labels) <= 2 {
		return strings.Join(labels, ".")
	}

	lastTwo := strings.Join(labels[len(labels)-2:], ".")
	if _, ok := multiPartSuffixes[lastTwo]; ok {
		return strings.Join(labels[len(labels)-3:], ".")
	}
	return lastTwo
}

// Origin returns the scheme://host root of a URL, or "" when it cannot
// be parsed.
func Origin(rawURL string) string {
	normalized, err := Normalize(rawURL)
	if err != nil {
		return ""
	}
	u, err := url.Parse(normalized)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}

// Host extracts the lowercase host of a URL, tolerating schemeless input.
func Host(rawURL string) string {
	normalized, err := Normalize(rawURL)
	if err != nil {
		return ""
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	return u.Host
}
