package crawler

import (
	"net/url"
	"strings"
	"time"

	"search-engine/urlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"
)

// Page is what the extractor pulls out of one HTML document.
type Page struct {
	Title       string
	Description string
	Content     string
	Outlinks    []string
	FeedLinks   []string
	PublishedAt *time.Time
	UpdatedAt   *time.Time
}

// Valid reports whether the page carries enough substance to index.
func (p *Page) Valid() bool {
	return p.Title != "" && p.Description != "" && len(p.Content) >= 120
}

// Extract parses HTML into a Page: title and meta description from the
// DOM, main content via readability, outlinks and feed links normalized
// against the page URL, timestamps from article meta properties.
func Extract(pageURL, html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	page := &Page{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: strings.TrimSpace(doc.Find(`meta[name="description"]`).First().AttrOr("content", "")),
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	article, err := readability.FromReader(strings.NewReader(html), base)
	if err == nil {
		page.Content = strings.Join(strings.Fields(article.TextContent), " ")
	}

	page.Outlinks = extractOutlinks(doc, base)
	page.FeedLinks = extractFeedLinks(doc, base)
	page.PublishedAt = extractTimestamp(doc, "article:published_time")
	page.UpdatedAt = extractTimestamp(doc, "article:modified_time")
	return page, nil
}

func extractOutlinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		absolute, err := base.Parse(href)
		if err != nil {
			return
		}
		normalized, err := urlutil.Normalize(absolute.String())
		if err != nil {
			return
		}
		if _, ok := seen[normalized]; ok {
			return
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	})
	return links
}

func isFeedHint(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "rss") || strings.Contains(s, "atom") || strings.Contains(s, "feed")
}

func extractFeedLinks(doc *goquery.Document, base *url.URL) []string {
	var feeds []string
	seen := make(map[string]struct{})

	add := func(href string) {
		if href == "" {
			return
		}
		absolute, err := base.Parse(href)
		if err != nil {
			return
		}
		normalized, err := urlutil.Normalize(absolute.String())
		if err != nil {
			return
		}
		if _, ok := seen[normalized]; ok {
			return
		}
		seen[normalized] = struct{}{}
		feeds = append(feeds, normalized)
	}

	doc.Find("link[href]").Each(func(_ int, sel *goquery.Selection) {
		rel, _ := sel.Attr("rel")
		typ, _ := sel.Attr("type")
		if isFeedHint(rel) || isFeedHint(typ) {
			add(sel.AttrOr("href", ""))
		}
	})
	doc.Find("meta[name][content]").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		if isFeedHint(name) {
			add(sel.AttrOr("content", ""))
		}
	})
	return feeds
}

func extractTimestamp(doc *goquery.Document, prop string) *time.Time {
	content := doc.Find(`meta[property="` + prop + `"]`).First().AttrOr("content", "")
	if content == "" {
		return nil
	}
	ts, err := dateparse.ParseAny(content)
	if err != nil {
		return nil
	}
	ts = ts.UTC()
	if ts.After(time.Now().UTC()) {
		return nil
	}
	return &ts
}
