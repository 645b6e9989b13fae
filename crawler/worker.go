package crawler

import (
	"context"
	"strings"
	"time"

	"search-engine/domain"
	"search-engine/logger"
	"search-engine/ratelimit"
	"search-engine/tokenize"
	"search-engine/urlutil"
)

// Store is the slice of the storage gateway the worker drives.
type Store interface {
	Claim(ctx context.Context, limit int) ([]domain.QueueItem, error)
	MarkStatus(ctx context.Context, url, status string) error
	SaveCrawledDocument(ctx context.Context, doc *domain.Document, tokens []domain.TokenGroup, outlinks []string) (int64, error)
	RegisterFeed(ctx context.Context, feedURL, homeURL, discoveredBy string) error
	IsNewsArticle(ctx context.Context, url string) (bool, error)
	BackfillArticleContent(ctx context.Context, url, content string) (bool, error)
}

// Worker claims queue entries, runs each through the fetch-extract
// pipeline and records the outcome as a queue status.
type Worker struct {
	store       Store
	fetcher     *Fetcher
	limiter     *ratelimit.DomainLimiter
	concurrency int
	batchSize   int
}

func NewWorker(store Store, fetcher *Fetcher, limiter *ratelimit.DomainLimiter, concurrency, batchSize int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		store:       store,
		fetcher:     fetcher,
		limiter:     limiter,
		concurrency: concurrency,
		batchSize:   batchSize,
	}
}

// Quality scores content in [0,1]: word density against a 300-word
// target, penalized by outbound link density capped at 0.4.
func Quality(content string, outlinkCount int) float64 {
	wc := len(strings.Fields(content))
	if wc == 0 {
		return 0.0
	}
	density := float64(wc) / 300.0
	if density > 1.0 {
		density = 1.0
	}
	linkPenalty := float64(outlinkCount) / float64(wc)
	if linkPenalty > 0.4 {
		linkPenalty = 0.4
	}
	score := density - linkPenalty
	if score < 0 {
		return 0.0
	}
	return score
}

// Freshness decays linearly over a year from the newest known
// timestamp. Pages without any timestamp get a small floor.
func Freshness(updatedAt, publishedAt *time.Time) float64 {
	ts := updatedAt
	if ts == nil {
		ts = publishedAt
	}
	if ts == nil {
		return 0.1
	}
	days := time.Now().UTC().Sub(*ts).Hours() / 24
	if days > 365 {
		days = 365
	}
	score := 1.0 - days/365.0
	if score < 0 {
		return 0.0
	}
	return score
}

// Process runs the per-item state machine and always leaves the queue
// entry in a terminal status.
func (w *Worker) Process(ctx context.Context, item domain.QueueItem) {
	logger.Logger.Info("processing", "url", item.URL, "domain", item.Domain)

	res, err := w.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		logger.Logger.Warn("fetch failed", "url", item.URL, "error", err)
		w.mark(ctx, item.URL, domain.StatusProcessingError)
		return
	}

	if res.StatusCode >= 400 {
		logger.Logger.Warn("non-success status", "url", item.URL, "status_code", res.StatusCode)
		w.mark(ctx, item.URL, domain.StatusNonSuccessStatus)
		return
	}

	if IsFeedContentType(res.ContentType, res.Body) {
		if err := w.store.RegisterFeed(ctx, item.URL, urlutil.Origin(item.URL), item.URL); err != nil {
			logger.Logger.Error("failed to register feed", "url", item.URL, "error", err)
			w.mark(ctx, item.URL, domain.StatusProcessingError)
			return
		}
		logger.Logger.Info("registered feed", "url", item.URL)
		w.mark(ctx, item.URL, domain.StatusDone)
		return
	}

	if !IsHTMLContentType(res.ContentType) {
		logger.Logger.Warn("non-html response", "url", item.URL, "content_type", res.ContentType)
		w.mark(ctx, item.URL, domain.StatusProcessingError)
		return
	}

	page, err := Extract(item.URL, string(res.Body))
	if err != nil || !page.Valid() {
		logger.Logger.Warn("validation failed", "url", item.URL)
		w.mark(ctx, item.URL, domain.StatusValidationError)
		return
	}

	if err := w.persist(ctx, item.URL, page); err != nil {
		logger.Logger.Error("failed to persist document", "url", item.URL, "error", err)
		w.mark(ctx, item.URL, domain.StatusProcessingError)
		return
	}

	w.mark(ctx, item.URL, domain.StatusDone)
}

func (w *Worker) persist(ctx context.Context, url string, page *Page) error {
	quality := Quality(page.Content, len(page.Outlinks))
	freshness := Freshness(page.UpdatedAt, page.PublishedAt)

	doc := &domain.Document{
		URL:            url,
		CanonicalURL:   url,
		Title:          page.Title,
		Description:    page.Description,
		Content:        page.Content,
		PublishedAt:    page.PublishedAt,
		UpdatedAt:      page.UpdatedAt,
		WordCount:      len(strings.Fields(page.Content)),
		QualityScore:   quality,
		FreshnessScore: freshness,
	}
	tokens := []domain.TokenGroup{
		{Field: domain.FieldTitle, Terms: tokenize.Tokenize(page.Title)},
		{Field: domain.FieldDescription, Terms: tokenize.Tokenize(page.Description)},
		{Field: domain.FieldBody, Terms: tokenize.Tokenize(page.Content)},
	}

	if _, err := w.store.SaveCrawledDocument(ctx, doc, tokens, page.Outlinks); err != nil {
		return err
	}

	for _, feed := range page.FeedLinks {
		if err := w.store.RegisterFeed(ctx, feed, url, url); err != nil {
			logger.Logger.Warn("failed to register discovered feed", "feed_url", feed, "error", err)
		}
	}

	isArticle, err := w.store.IsNewsArticle(ctx, url)
	if err != nil {
		logger.Logger.Warn("failed to check news article", "url", url, "error", err)
	} else if isArticle {
		changed, err := w.store.BackfillArticleContent(ctx, url, page.Content)
		if err != nil {
			logger.Logger.Warn("failed to backfill article content", "url", url, "error", err)
		} else if changed {
			logger.Logger.Info("backfilled article content", "url", url, "word_count", doc.WordCount)
		}
	}

	logger.Logger.Info("processed", "url", url,
		"word_count", doc.WordCount, "links", len(page.Outlinks),
		"quality", quality, "freshness", freshness)
	return nil
}

func (w *Worker) mark(ctx context.Context, url, status string) {
	if err := w.store.MarkStatus(ctx, url, status); err != nil {
		logger.Logger.Error("failed to mark status", "url", url, "status", status, "error", err)
	}
}

func (w *Worker) itemDomain(item domain.QueueItem) string {
	if item.Domain != "" {
		return item.Domain
	}
	return urlutil.Host(item.URL)
}

// popReady removes and returns the first pending item whose domain can
// be reserved right now.
func (w *Worker) popReady(pending *[]domain.QueueItem) (domain.QueueItem, bool) {
	for i, item := range *pending {
		if w.limiter.TryReserve(w.itemDomain(item)) {
			*pending = append((*pending)[:i], (*pending)[i+1:]...)
			return item, true
		}
	}
	return domain.QueueItem{}, false
}

func (w *Worker) minDomainWait(pending []domain.QueueItem) time.Duration {
	if len(pending) == 0 {
		return 0
	}
	min := w.limiter.Until(w.itemDomain(pending[0]))
	for _, item := range pending[1:] {
		if wait := w.limiter.Until(w.itemDomain(item)); wait < min {
			min = wait
		}
	}
	return min
}

// Run is the scheduler loop: refill the pending buffer from the queue,
// admit rate-limit-ready items up to the concurrency cap, then wait for
// the first completion or the next domain slot.
func (w *Worker) Run(ctx context.Context) error {
	dequeueSize := w.batchSize
	if dequeueSize < w.concurrency*4 {
		dequeueSize = w.concurrency * 4
	}
	logger.Logger.Info("crawler worker started",
		"batch_size", w.batchSize, "concurrency", w.concurrency, "dequeue_size", dequeueSize)

	var pending []domain.QueueItem
	inFlight := 0
	completed := make(chan struct{}, w.concurrency)

	for {
		if ctx.Err() != nil {
			for inFlight > 0 {
				<-completed
				inFlight--
			}
			return ctx.Err()
		}

		if len(pending) < dequeueSize {
			items, err := w.store.Claim(ctx, dequeueSize-len(pending))
			if err != nil {
				logger.Logger.Error("failed to claim queue entries", "error", err)
			} else if len(items) > 0 {
				pending = append(pending, items...)
				logger.Logger.Info("claimed items", "count", len(items), "pending", len(pending))
			}
		}

		submitted := 0
		for inFlight < w.concurrency {
			item, ok := w.popReady(&pending)
			if !ok {
				break
			}
			inFlight++
			submitted++
			go func(item domain.QueueItem) {
				w.Process(ctx, item)
				completed <- struct{}{}
			}(item)
		}
		if submitted > 0 {
			continue
		}

		if inFlight > 0 {
			wait := 200 * time.Millisecond
			if len(pending) > 0 {
				if dw := w.minDomainWait(pending); dw < wait {
					wait = dw
				}
			}
			timer := time.NewTimer(wait)
			select {
			case <-completed:
				inFlight--
			case <-timer.C:
			case <-ctx.Done():
			}
			timer.Stop()
			continue
		}

		if len(pending) > 0 {
			wait := w.minDomainWait(pending)
			if wait < 10*time.Millisecond {
				wait = 10 * time.Millisecond
			}
			if wait > 200*time.Millisecond {
				wait = 200 * time.Millisecond
			}
			sleepCtx(ctx, wait)
			continue
		}

		sleepCtx(ctx, 500*time.Millisecond)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
