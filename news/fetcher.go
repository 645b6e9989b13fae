// Package news polls registered RSS/Atom feeds and folds their items
// into the article store and the crawl queue.
package news

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"search-engine/db"
	"search-engine/domain"
	"search-engine/logger"
	"search-engine/ratelimit"
	"search-engine/tokenize"
	"search-engine/urlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

const (
	maxFeedsPerRun  = 100
	maxItemsPerFeed = 50
	userAgent       = "search-engine-news-fetcher/1.0"

	// Minimum spacing between requests to the same host. Many feeds
	// live on shared aggregator hosts.
	perHostInterval = 500 * time.Millisecond
)

// Store is the slice of the storage gateway the news fetcher uses.
type Store interface {
	DueFeeds(ctx context.Context, totalNodes, nodeIndex, limit int) ([]string, error)
	SaveFeedResult(ctx context.Context, feedURL string, meta db.FeedMeta, articles []domain.NewsArticle, tokensByURL map[string]map[string]int) error
}

// Fetcher polls due feeds on this node's shard.
type Fetcher struct {
	store      Store
	client     *http.Client
	parser     *gofeed.Parser
	limiter    *ratelimit.WaitLimiter
	totalNodes int
	nodeIndex  int
}

func NewFetcher(store Store, totalNodes, nodeIndex int) *Fetcher {
	if totalNodes < 1 {
		totalNodes = 1
	}
	return &Fetcher{
		store:      store,
		client:     &http.Client{Timeout: 12 * time.Second},
		parser:     gofeed.NewParser(),
		limiter:    ratelimit.NewWaitLimiter(perHostInterval),
		totalNodes: totalNodes,
		nodeIndex:  nodeIndex,
	}
}

// Run polls every due feed once. Per-feed failures are logged and do
// not stop the rest of the batch.
func (f *Fetcher) Run(ctx context.Context) error {
	feeds, err := f.store.DueFeeds(ctx, f.totalNodes, f.nodeIndex, maxFeedsPerRun)
	if err != nil {
		return fmt.Errorf("failed to select due feeds: %w", err)
	}
	if len(feeds) == 0 {
		return nil
	}
	logger.Logger.Info("news fetch cycle", "due_feeds", len(feeds))

	for _, feedURL := range feeds {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.processFeed(ctx, feedURL); err != nil {
			logger.Logger.Error("failed processing feed", "feed_url", feedURL, "error", err)
		}
	}
	return nil
}

func (f *Fetcher) processFeed(ctx context.Context, feedURL string) error {
	body, err := f.get(ctx, feedURL)
	if err != nil {
		return err
	}

	feed, err := f.parser.ParseString(string(body))
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	meta := f.feedMeta(ctx, feedURL, feed)
	articles, tokensByURL := f.parseItems(ctx, feedURL, feed)

	// last_published tracks the newest item seen, not just the
	// channel-level date.
	for _, article := range articles {
		if article.PublishedAt == nil {
			continue
		}
		if meta.LastPublished == nil || article.PublishedAt.After(*meta.LastPublished) {
			meta.LastPublished = article.PublishedAt
		}
	}

	if err := f.store.SaveFeedResult(ctx, feedURL, meta, articles, tokensByURL); err != nil {
		return err
	}
	logger.Logger.Info("processed feed", "feed_url", feedURL, "items", len(articles))
	return nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx, urlutil.Host(rawURL)); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch of %s returned status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (f *Fetcher) feedMeta(ctx context.Context, feedURL string, feed *gofeed.Feed) db.FeedMeta {
	meta := db.FeedMeta{Name: strings.TrimSpace(feed.Title)}

	if feed.Link != "" {
		if link := resolveURL(feedURL, feed.Link); link != "" {
			meta.Link = link
		}
	}
	if feed.UpdatedParsed != nil {
		ts := feed.UpdatedParsed.UTC()
		meta.LastPublished = &ts
	} else if feed.PublishedParsed != nil {
		ts := feed.PublishedParsed.UTC()
		meta.LastPublished = &ts
	}
	if feed.Image != nil && feed.Image.URL != "" {
		meta.Image = f.fetchImageBase64(ctx, resolveURL(feedURL, feed.Image.URL))
	}
	return meta
}

func (f *Fetcher) parseItems(ctx context.Context, feedURL string, feed *gofeed.Feed) ([]domain.NewsArticle, map[string]map[string]int) {
	var articles []domain.NewsArticle
	tokensByURL := make(map[string]map[string]int)

	for _, item := range feed.Items {
		if len(articles) >= maxItemsPerFeed {
			break
		}
		article, ok := f.parseItem(ctx, feedURL, item)
		if !ok {
			continue
		}
		articles = append(articles, article)

		text := article.Title + " " + article.Description + " " + article.Content
		if terms := tokenize.Tokenize(text); len(terms) > 0 {
			tokensByURL[article.URL] = terms
		}
	}
	return articles, tokensByURL
}

func (f *Fetcher) parseItem(ctx context.Context, feedURL string, item *gofeed.Item) (domain.NewsArticle, bool) {
	if item.Link == "" {
		return domain.NewsArticle{}, false
	}
	articleURL := resolveURL(feedURL, item.Link)
	if articleURL == "" {
		return domain.NewsArticle{}, false
	}

	article := domain.NewsArticle{
		URL:         articleURL,
		FeedURL:     feedURL,
		Title:       strings.TrimSpace(item.Title),
		Description: stripHTML(item.Description),
		Content:     strings.TrimSpace(item.Content),
		Author:      itemAuthor(item),
		PublishedAt: itemPublished(item),
	}
	if imageURL := itemImageURL(item); imageURL != "" {
		article.Image = f.fetchImageBase64(ctx, resolveURL(feedURL, imageURL))
	}
	return article, true
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return strings.TrimSpace(item.Author.Name)
	}
	for _, author := range item.Authors {
		if author != nil && author.Name != "" {
			return strings.TrimSpace(author.Name)
		}
	}
	if item.DublinCoreExt != nil {
		for _, creator := range item.DublinCoreExt.Creator {
			if creator != "" {
				return strings.TrimSpace(creator)
			}
		}
	}
	if item.ITunesExt != nil && item.ITunesExt.Author != "" {
		return strings.TrimSpace(item.ITunesExt.Author)
	}
	return ""
}

func itemPublished(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		ts := item.PublishedParsed.UTC()
		return &ts
	}
	if item.UpdatedParsed != nil {
		ts := item.UpdatedParsed.UTC()
		return &ts
	}
	for _, raw := range []string{item.Published, item.Updated} {
		if raw == "" {
			continue
		}
		if ts, err := dateparse.ParseAny(raw); err == nil {
			utc := ts.UTC()
			return &utc
		}
	}
	return nil
}

// itemImageURL picks the best image reference in priority order:
// item image, media:thumbnail, media:content, image enclosure.
func itemImageURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	if mediaExt, ok := item.Extensions["media"]; ok {
		if thumbnails, ok := mediaExt["thumbnail"]; ok {
			for _, thumb := range thumbnails {
				if u := thumb.Attrs["url"]; u != "" {
					return u
				}
			}
		}
		if contents, ok := mediaExt["content"]; ok {
			for _, content := range contents {
				if u := content.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(strings.ToLower(enc.Type), "image") && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}

func (f *Fetcher) fetchImageBase64(ctx context.Context, imageURL string) string {
	if imageURL == "" {
		return ""
	}
	body, err := f.get(ctx, imageURL)
	if err != nil || len(body) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(body)
}

func resolveURL(baseURL, ref string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	absolute, err := base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	normalized, err := urlutil.Normalize(absolute.String())
	if err != nil {
		return ""
	}
	return normalized
}

func stripHTML(value string) string {
	if value == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
