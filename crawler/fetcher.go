// Package crawler implements the fetch-extract-persist pipeline and
// the scheduler that drives it.
package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// FetchResult is the raw outcome of one page fetch.
type FetchResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher issues polite HTTP GETs with a shared tuned transport.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgent: userAgent,
	}
}

// Fetch GETs the URL, following redirects. Any transport fault is
// returned as an error for the caller to classify.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", url, err)
	}

	return &FetchResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// IsFeedContentType reports whether a response is an RSS or Atom feed,
// either by content type or by sniffing the first 512 bytes of a
// generic XML body for a feed root element.
func IsFeedContentType(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "application/rss+xml") ||
		strings.Contains(ct, "application/atom+xml") ||
		strings.Contains(ct, "application/feed+json") {
		return true
	}

	if strings.Contains(ct, "xml") {
		head := body
		if len(head) > 512 {
			head = head[:512]
		}
		head = bytes.ToLower(head)
		return bytes.Contains(head, []byte("<rss")) ||
			bytes.Contains(head, []byte("<feed")) ||
			bytes.Contains(head, []byte("<atom"))
	}
	return false
}

// IsHTMLContentType reports whether the response can be parsed as a
// page.
func IsHTMLContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
