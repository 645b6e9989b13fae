package db

import (
	"context"
	"fmt"
	"time"

	"search-engine/domain"
	"search-engine/urlutil"

	"github.com/jackc/pgx/v5"
)

const enqueueSQL = `
	INSERT INTO crawl_queue(url, status, domain, attempt_count)
	VALUES ($1, 'queued', $2, 0)
	ON CONFLICT (url) DO NOTHING
`

// Enqueue normalizes a URL and inserts it as queued. Re-enqueueing a
// known URL is a no-op.
func (s *Store) Enqueue(ctx context.Context, rawURL string) error {
	normalized, err := urlutil.Normalize(rawURL)
	if err != nil {
		return fmt.Errorf("failed to normalize URL for enqueue: %w", err)
	}

	_, err = s.pool.Exec(ctx, enqueueSQL, normalized, urlutil.RegistrableDomain(normalized))
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", normalized, err)
	}
	return nil
}

const enqueueManySQL = `
	INSERT INTO crawl_queue(url, status, domain, attempt_count)
	SELECT t.url, 'queued', t.domain, 0
	FROM unnest($1::text[], $2::text[]) AS t(url, domain)
	ON CONFLICT (url) DO NOTHING
`

// EnqueueManyTx inserts a batch of already-normalized URLs inside the
// caller's transaction with a single statement. Insertion is
// idempotent.
func EnqueueManyTx(ctx context.Context, tx pgx.Tx, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	domains := make([]string, len(urls))
	for i, u := range urls {
		domains[i] = urlutil.RegistrableDomain(u)
	}

	if _, err := tx.Exec(ctx, enqueueManySQL, urls, domains); err != nil {
		return fmt.Errorf("failed to enqueue %d urls: %w", len(urls), err)
	}
	return nil
}

const claimSQL = `
	WITH next_urls AS (
	  SELECT url, domain
	  FROM crawl_queue
	  WHERE status = 'queued'
	  ORDER BY last_attempt NULLS FIRST, attempt_count ASC
	  LIMIT $1
	  FOR UPDATE SKIP LOCKED
	)
	UPDATE crawl_queue q
	SET status = 'in_progress',
	    last_attempt = now(),
	    attempt_count = attempt_count + 1
	FROM next_urls
	WHERE q.url = next_urls.url
	RETURNING q.url, q.domain
`

// Claim atomically moves up to limit queued entries to in_progress and
// returns them. Rows locked by a concurrent claimer are skipped, so
// concurrent claimers always receive disjoint sets.
func (s *Store) Claim(ctx context.Context, limit int) ([]domain.QueueItem, error) {
	var items []domain.QueueItem

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, claimSQL, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var item domain.QueueItem
			if err := rows.Scan(&item.URL, &item.Domain); err != nil {
				return err
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim queue entries: %w", err)
	}
	return items, nil
}

// MarkStatus transitions a queue entry to a terminal status.
func (s *Store) MarkStatus(ctx context.Context, url, status string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE crawl_queue SET status = $1, last_attempt = $2 WHERE url = $3`,
		status, time.Now().UTC(), url)
	if err != nil {
		return fmt.Errorf("failed to mark %s as %s: %w", url, status, err)
	}
	return nil
}

// RequeueStale returns in_progress entries abandoned by a crashed
// worker to the queue. Returns the number of entries requeued.
func (s *Store) RequeueStale(ctx context.Context, age time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE crawl_queue
		SET status = 'queued'
		WHERE status = 'in_progress'
		  AND last_attempt < now() - $1::interval
	`, age)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
