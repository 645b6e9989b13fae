package db

import (
	"context"
	"fmt"

	"search-engine/domain"

	"github.com/jackc/pgx/v5"
)

const upsertDocumentSQL = `
	INSERT INTO documents(
	    url, canonical_url, title, description, content,
	    published_at, updated_at, word_count, quality_score, freshness_score, status
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,'done')
	ON CONFLICT(url) DO UPDATE SET
	  title = EXCLUDED.title,
	  description = EXCLUDED.description,
	  content = EXCLUDED.content,
	  published_at = EXCLUDED.published_at,
	  updated_at = EXCLUDED.updated_at,
	  word_count = EXCLUDED.word_count,
	  quality_score = EXCLUDED.quality_score,
	  freshness_score = EXCLUDED.freshness_score,
	  status = 'done'
	RETURNING id
`

// SaveCrawledDocument persists a crawled page in one transaction: the
// document row, its tokens for every field, its outlinks, and the
// discovered outlinks enqueued. All of it commits together or not at
// all.
func (s *Store) SaveCrawledDocument(ctx context.Context, doc *domain.Document, tokens []domain.TokenGroup, outlinks []string) (int64, error) {
	var docID int64

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, upsertDocumentSQL,
			doc.URL, doc.CanonicalURL, doc.Title, doc.Description, doc.Content,
			doc.PublishedAt, doc.UpdatedAt, doc.WordCount, doc.QualityScore, doc.FreshnessScore,
		).Scan(&docID)
		if err != nil {
			return fmt.Errorf("failed to upsert document: %w", err)
		}

		if err := replaceTokensTx(ctx, tx, docID, tokens); err != nil {
			return err
		}
		if err := replaceOutlinksTx(ctx, tx, docID, outlinks); err != nil {
			return err
		}
		return EnqueueManyTx(ctx, tx, outlinks)
	})
	if err != nil {
		return 0, err
	}
	return docID, nil
}

func replaceTokensTx(ctx context.Context, tx pgx.Tx, docID int64, groups []domain.TokenGroup) error {
	if _, err := tx.Exec(ctx, `DELETE FROM tokens WHERE doc_id = $1`, docID); err != nil {
		return fmt.Errorf("failed to delete tokens: %w", err)
	}

	var rows [][]any
	for _, group := range groups {
		for term, freq := range group.Terms {
			rows = append(rows, []any{docID, domain.SourceWeb, term, group.Field, freq, []int32{}})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"tokens"},
		[]string{"doc_id", "source_type", "term", "field", "frequency", "positions"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to insert tokens: %w", err)
	}
	return nil
}

func replaceOutlinksTx(ctx context.Context, tx pgx.Tx, docID int64, outlinks []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM links_outgoing WHERE source_doc_id = $1`, docID); err != nil {
		return fmt.Errorf("failed to delete outlinks: %w", err)
	}
	if len(outlinks) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(outlinks))
	for _, link := range outlinks {
		rows = append(rows, []any{docID, link})
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"links_outgoing"},
		[]string{"source_doc_id", "target_url"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to insert outlinks: %w", err)
	}
	return nil
}

// DoneDocumentContents streams (id, content) of done documents whose id
// falls on this shard. fn is called once per row.
func (s *Store) DoneDocumentContents(ctx context.Context, totalNodes, nodeIndex int, fn func(id int64, content string) error) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, content
		FROM documents
		WHERE status = 'done'
		  AND mod(id, $1) = $2
	`, totalNodes, nodeIndex)
	if err != nil {
		return fmt.Errorf("failed to query document contents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var content string
		if err := rows.Scan(&id, &content); err != nil {
			return err
		}
		if err := fn(id, content); err != nil {
			return err
		}
	}
	return rows.Err()
}
