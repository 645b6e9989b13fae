package db

import (
	"context"
	"fmt"
	"time"

	"search-engine/domain"
	"search-engine/urlutil"

	"github.com/jackc/pgx/v5"
)

// RegisterFeed records a newly discovered feed. The URL is normalized
// first so every caller registers the same canonical form. Known feeds
// are left untouched.
func (s *Store) RegisterFeed(ctx context.Context, feedURL, homeURL, discoveredBy string) error {
	normalized, err := urlutil.Normalize(feedURL)
	if err != nil {
		return fmt.Errorf("failed to normalize feed url %s: %w", feedURL, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO news_feeds(feed_url, home_url, discovered_by_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (feed_url) DO NOTHING
	`, normalized, homeURL, discoveredBy)
	if err != nil {
		return fmt.Errorf("failed to register feed %s: %w", normalized, err)
	}
	return nil
}

// DueFeeds returns up to limit feeds whose next fetch is due, restricted
// to this node's shard. Never-fetched feeds come first.
func (s *Store) DueFeeds(ctx context.Context, totalNodes, nodeIndex, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT feed_url
		FROM news_feeds
		WHERE COALESCE(next_fetch_at, now() - interval '1 second') <= now()
		  AND mod(abs(hashtext(feed_url)), $1) = $2
		ORDER BY next_fetch_at NULLS FIRST, last_fetched NULLS FIRST
		LIMIT $3
	`, totalNodes, nodeIndex, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select due feeds: %w", err)
	}
	defer rows.Close()

	var feeds []string
	for rows.Next() {
		var feedURL string
		if err := rows.Scan(&feedURL); err != nil {
			return nil, err
		}
		feeds = append(feeds, feedURL)
	}
	return feeds, rows.Err()
}

// FeedMeta is the feed-level metadata refreshed on every poll.
type FeedMeta struct {
	Name          string
	Link          string
	Image         string
	LastPublished *time.Time
}

// SaveFeedResult persists one feed poll in a single transaction: feed
// metadata (blank values never overwrite present ones), article
// merge-upserts, news-token replacement, and the article URLs enqueued
// for deeper extraction. Sets next_fetch_at twenty minutes out.
func (s *Store) SaveFeedResult(ctx context.Context, feedURL string, meta FeedMeta, articles []domain.NewsArticle, tokensByURL map[string]map[string]int) error {
	now := time.Now().UTC()
	nextFetchAt := now.Add(20 * time.Minute)

	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE news_feeds
			SET last_fetched = $1,
			    next_fetch_at = $2,
			    name = COALESCE(NULLIF($3, ''), name),
			    link = COALESCE(NULLIF($4, ''), link),
			    image = COALESCE(NULLIF($5, ''), image),
			    last_published = COALESCE($6, last_published)
			WHERE feed_url = $7
		`, now, nextFetchAt, meta.Name, meta.Link, meta.Image, meta.LastPublished, feedURL)
		if err != nil {
			return fmt.Errorf("failed to update feed metadata: %w", err)
		}

		discovered := make([]string, 0, len(articles))
		for _, article := range articles {
			_, err := tx.Exec(ctx, `
				INSERT INTO news_articles(url, feed_url, title, description, image, content, author, published_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
				ON CONFLICT (url) DO UPDATE SET
				  title = COALESCE(NULLIF(EXCLUDED.title, ''), news_articles.title),
				  description = COALESCE(NULLIF(EXCLUDED.description, ''), news_articles.description),
				  image = COALESCE(NULLIF(EXCLUDED.image, ''), news_articles.image),
				  content = CASE
				      WHEN COALESCE(news_articles.content, '') = '' THEN EXCLUDED.content
				      WHEN COALESCE(EXCLUDED.content, '') = '' THEN news_articles.content
				      ELSE EXCLUDED.content
				  END,
				  author = COALESCE(NULLIF(EXCLUDED.author, ''), news_articles.author),
				  published_at = COALESCE(EXCLUDED.published_at, news_articles.published_at),
				  updated_at = now()
			`, article.URL, feedURL, article.Title, article.Description, article.Image,
				article.Content, article.Author, article.PublishedAt)
			if err != nil {
				return fmt.Errorf("failed to upsert article %s: %w", article.URL, err)
			}

			discovered = append(discovered, article.URL)

			if err := replaceNewsTokensTx(ctx, tx, article.URL, tokensByURL[article.URL]); err != nil {
				return err
			}
		}

		return EnqueueManyTx(ctx, tx, discovered)
	})
}

func replaceNewsTokensTx(ctx context.Context, tx pgx.Tx, articleURL string, terms map[string]int) error {
	if len(terms) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM tokens WHERE source_type = 2 AND article_url = $1`, articleURL); err != nil {
		return fmt.Errorf("failed to delete news tokens: %w", err)
	}

	rows := make([][]any, 0, len(terms))
	for term, freq := range terms {
		rows = append(rows, []any{nil, articleURL, domain.SourceNews, term, domain.FieldBody, freq, []int32{}})
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"tokens"},
		[]string{"doc_id", "article_url", "source_type", "term", "field", "frequency", "positions"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to insert news tokens: %w", err)
	}
	return nil
}

// BackfillArticleContent fills in a news article's content when the
// crawler extracted a fuller body than the feed provided. Present
// content is never overwritten. Reports whether a row changed.
func (s *Store) BackfillArticleContent(ctx context.Context, articleURL, content string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE news_articles
		SET content = $1, updated_at = now()
		WHERE url = $2
		  AND COALESCE(content, '') = ''
	`, content, articleURL)
	if err != nil {
		return false, fmt.Errorf("failed to backfill article content: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// IsNewsArticle reports whether the URL is already a registered news
// article.
func (s *Store) IsNewsArticle(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM news_articles WHERE url = $1)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check news article: %w", err)
	}
	return exists, nil
}
