package db

import (
	"context"
	"fmt"
	"time"

	"search-engine/domain"

	"github.com/jackc/pgx/v5"
)

const webCandidatesSQL = `
	WITH scored AS (
	  SELECT d.id,
	         d.title,
	         d.description,
	         d.url,
	         SUM(
	           t.frequency
	           * COALESCE(ts.idf, 1.0)
	           * CASE t.field
	               WHEN 1 THEN 3.2
	               WHEN 2 THEN 1.7
	               ELSE 1.0
	             END
	         ) AS token_score,
	         COUNT(DISTINCT t.term) AS matched_terms
	  FROM tokens t
	  JOIN documents d ON d.id = t.doc_id
	  LEFT JOIN term_statistics ts ON ts.term = t.term
	  WHERE d.status = 'done'
	    AND t.term = ANY($1)
	  GROUP BY d.id, d.title, d.description, d.url
	)
	SELECT COALESCE(title, ''), COALESCE(description, ''), url, token_score, matched_terms
	FROM scored
	ORDER BY token_score DESC, url ASC
	LIMIT $2
`

// WebCandidates returns up to limit done documents matching any query
// term, scored by weighted token frequency. Title tokens count 3.2x,
// description 1.7x, body 1.0x.
func (s *Store) WebCandidates(ctx context.Context, terms []string, limit int) ([]domain.WebCandidate, error) {
	rows, err := s.pool.Query(ctx, webCandidatesSQL, terms, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query web candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.WebCandidate
	for rows.Next() {
		var c domain.WebCandidate
		if err := rows.Scan(&c.Title, &c.Description, &c.URL, &c.TokenScore, &c.MatchedTerms); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

const webCandidatesASCIISQL = `
	WITH scored AS (
	  SELECT d.id,
	         SUM(
	           t.frequency
	           * COALESCE(ts.idf, 1.0)
	           * CASE t.field
	               WHEN 1 THEN 3.2
	               WHEN 2 THEN 1.7
	               ELSE 1.0
	             END
	         ) AS token_score,
	         COUNT(DISTINCT t.term) AS matched_terms
	  FROM tokens t
	  JOIN documents d ON d.id = t.doc_id
	  LEFT JOIN term_statistics ts ON ts.term = t.term
	  WHERE d.status = 'done'
	    AND t.term = ANY($1)
	  GROUP BY d.id
	)
	SELECT token_score, matched_terms
	FROM scored
	ORDER BY token_score DESC
	LIMIT $2
`

// WebCandidatesASCII is the degraded retry for corpora holding rows
// that are not valid UTF-8. It projects numeric columns only, so
// nothing textual crosses the wire. The encoding switch and the query
// run in one transaction, pinning them to the same connection; SET
// LOCAL expires with the transaction, so the pooled connection goes
// back in UTF8.
func (s *Store) WebCandidatesASCII(ctx context.Context, terms []string, limit int) ([]domain.WebCandidate, error) {
	var candidates []domain.WebCandidate
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SET LOCAL client_encoding TO SQL_ASCII`); err != nil {
			return fmt.Errorf("failed to switch client encoding: %w", err)
		}

		rows, err := tx.Query(ctx, webCandidatesASCIISQL, terms, limit)
		if err != nil {
			return fmt.Errorf("failed to query web candidates (ascii): %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var c domain.WebCandidate
			if err := rows.Scan(&c.TokenScore, &c.MatchedTerms); err != nil {
				return err
			}
			candidates = append(candidates, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

const newsCandidatesSQL = `
	SELECT COALESCE(na.title, ''),
	       COALESCE(na.description, ''),
	       na.url,
	       nf.feed_url,
	       nf.home_url,
	       nf.name,
	       nf.link,
	       nf.image,
	       nf.discovered_by_url,
	       nf.last_published,
	       nf.last_fetched,
	       nf.next_fetch_at,
	       nf.publish_rate_per_hour,
	       na.author,
	       na.published_at,
	       SUM(
	         t.frequency
	         * COALESCE(ts.idf, 1.0)
	       ) AS token_score,
	       COUNT(DISTINCT t.term) AS matched_terms
	FROM tokens t
	JOIN news_articles na ON na.url = t.article_url
	LEFT JOIN news_feeds nf ON nf.feed_url = na.feed_url
	LEFT JOIN term_statistics ts ON ts.term = t.term
	WHERE t.source_type = 2
	  AND t.term = ANY($1)
	GROUP BY na.title, na.description, na.url,
	         nf.feed_url, nf.home_url, nf.name, nf.link, nf.image, nf.discovered_by_url,
	         nf.last_published, nf.last_fetched, nf.next_fetch_at, nf.publish_rate_per_hour,
	         na.author, na.published_at
	ORDER BY token_score DESC, na.url ASC
	LIMIT $2
`

// NewsCandidates returns up to limit news articles matching any query
// term with their feed metadata joined in. News tokens carry no field
// weighting.
func (s *Store) NewsCandidates(ctx context.Context, terms []string, limit int) ([]domain.NewsCandidate, error) {
	rows, err := s.pool.Query(ctx, newsCandidatesSQL, terms, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query news candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.NewsCandidate
	for rows.Next() {
		var (
			c           domain.NewsCandidate
			feedURL     *string
			homeURL     *string
			name        *string
			link        *string
			image       *string
			discovered  *string
			lastPub     *time.Time
			lastFetched *time.Time
			nextFetch   *time.Time
			publishRate *float64
			author      *string
			publishedAt *time.Time
		)
		err := rows.Scan(&c.Title, &c.Description, &c.URL,
			&feedURL, &homeURL, &name, &link, &image, &discovered,
			&lastPub, &lastFetched, &nextFetch, &publishRate,
			&author, &publishedAt, &c.TokenScore, &c.MatchedTerms)
		if err != nil {
			return nil, err
		}

		if feedURL != nil {
			feed := &domain.NewsFeed{
				FeedURL:       *feedURL,
				LastPublished: lastPub,
				LastFetched:   lastFetched,
				NextFetchAt:   nextFetch,
			}
			if homeURL != nil {
				feed.HomeURL = *homeURL
			}
			if name != nil {
				feed.Name = *name
			}
			if link != nil {
				feed.Link = *link
			}
			if image != nil {
				feed.Image = *image
			}
			if discovered != nil {
				feed.DiscoveredByURL = *discovered
			}
			if publishRate != nil {
				feed.PublishRatePerHour = *publishRate
			}
			c.Feed = feed
		}
		if author != nil {
			c.Author = *author
		}
		if publishedAt != nil {
			formatted := publishedAt.Format(time.RFC3339)
			c.PublishedAt = &formatted
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
