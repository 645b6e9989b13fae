package db

import (
	"context"
	"fmt"

	"search-engine/domain"

	"github.com/jackc/pgx/v5"
)

// UpsertFingerprints stages document fingerprints into a temporary
// table and merges them, collapsing N round-trips into one.
func (s *Store) UpsertFingerprints(ctx context.Context, fingerprints map[int64]int64) error {
	if len(fingerprints) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			CREATE TEMP TABLE tmp_document_fingerprints (
			  doc_id BIGINT PRIMARY KEY,
			  fingerprint BIGINT NOT NULL
			) ON COMMIT DROP
		`)
		if err != nil {
			return fmt.Errorf("failed to create staging table: %w", err)
		}

		rows := make([][]any, 0, len(fingerprints))
		for docID, fp := range fingerprints {
			rows = append(rows, []any{docID, fp})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"tmp_document_fingerprints"},
			[]string{"doc_id", "fingerprint"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to stage fingerprints: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO document_fingerprints(doc_id, fingerprint)
			SELECT doc_id, fingerprint FROM tmp_document_fingerprints
			ON CONFLICT (doc_id) DO UPDATE SET fingerprint = EXCLUDED.fingerprint
		`)
		if err != nil {
			return fmt.Errorf("failed to merge fingerprints: %w", err)
		}
		return nil
	})
}

// RebuildResolvedEdges replaces the resolved link graph with the
// current outlink-to-document joins.
func (s *Store) RebuildResolvedEdges(ctx context.Context) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE links_resolved`); err != nil {
			return fmt.Errorf("failed to truncate links_resolved: %w", err)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO links_resolved(source_doc_id, target_doc_id)
			SELECT DISTINCT lo.source_doc_id, d.id
			FROM links_outgoing lo
			JOIN documents d ON d.url = lo.target_url
			ON CONFLICT (source_doc_id, target_doc_id) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("failed to rebuild resolved edges: %w", err)
		}
		return nil
	})
}

// DoneDocumentIDs returns the ids of all done documents.
func (s *Store) DoneDocumentIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM documents WHERE status = 'done'`)
	if err != nil {
		return nil, fmt.Errorf("failed to select document ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ResolvedEdges returns all (source, target) pairs of the link graph.
func (s *Store) ResolvedEdges(ctx context.Context) ([][2]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT source_doc_id, target_doc_id FROM links_resolved`)
	if err != nil {
		return nil, fmt.Errorf("failed to select resolved edges: %w", err)
	}
	defer rows.Close()

	var edges [][2]int64
	for rows.Next() {
		var source, target int64
		if err := rows.Scan(&source, &target); err != nil {
			return nil, err
		}
		edges = append(edges, [2]int64{source, target})
	}
	return edges, rows.Err()
}

// Authority is the computed rank of one document.
type Authority struct {
	DocID       int64
	PageRank    float64
	InlinkCount int
}

// UpsertAuthorityBulk stages and merges document authority rows.
func (s *Store) UpsertAuthorityBulk(ctx context.Context, authorities []Authority) error {
	if len(authorities) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			CREATE TEMP TABLE tmp_document_authority (
			  doc_id BIGINT PRIMARY KEY,
			  pagerank DOUBLE PRECISION NOT NULL,
			  inlink_count INT NOT NULL
			) ON COMMIT DROP
		`)
		if err != nil {
			return fmt.Errorf("failed to create staging table: %w", err)
		}

		rows := make([][]any, 0, len(authorities))
		for _, a := range authorities {
			rows = append(rows, []any{a.DocID, a.PageRank, a.InlinkCount})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"tmp_document_authority"},
			[]string{"doc_id", "pagerank", "inlink_count"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to stage authority rows: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO document_authority(doc_id, pagerank, inlink_count)
			SELECT doc_id, pagerank, inlink_count FROM tmp_document_authority
			ON CONFLICT (doc_id) DO UPDATE
			SET pagerank = EXCLUDED.pagerank,
			    inlink_count = EXCLUDED.inlink_count
		`)
		if err != nil {
			return fmt.Errorf("failed to merge authority rows: %w", err)
		}
		return nil
	})
}

// ReplaceTermStatistics recomputes BM25 term statistics wholesale from
// the token table inside one transaction.
func (s *Store) ReplaceTermStatistics(ctx context.Context) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var avgDocLen float64
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(AVG(word_count), 0)::float FROM documents WHERE status = 'done'`,
		).Scan(&avgDocLen)
		if err != nil {
			return fmt.Errorf("failed to compute avg doc length: %w", err)
		}

		var docTotal int64
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM documents WHERE status = 'done'`,
		).Scan(&docTotal)
		if err != nil {
			return fmt.Errorf("failed to count documents: %w", err)
		}
		if docTotal == 0 {
			docTotal = 1
		}

		if _, err := tx.Exec(ctx, `TRUNCATE term_statistics`); err != nil {
			return fmt.Errorf("failed to truncate term_statistics: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO term_statistics(term, doc_frequency, idf, avg_doc_len)
			SELECT t.term,
			       COUNT(DISTINCT t.doc_id) AS df,
			       LN(($1 - COUNT(DISTINCT t.doc_id) + 0.5) / (COUNT(DISTINCT t.doc_id) + 0.5) + 1),
			       $2
			FROM tokens t
			GROUP BY t.term
		`, docTotal, avgDocLen)
		if err != nil {
			return fmt.Errorf("failed to rebuild term_statistics: %w", err)
		}
		return nil
	})
}

// RebuildWordsTable re-aggregates raw word frequencies over document
// and article text in a single SQL pass.
func (s *Store) RebuildWordsTable(ctx context.Context) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE words`); err != nil {
			return fmt.Errorf("failed to truncate words: %w", err)
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO words(word, total_frequency)
			SELECT word, SUM(freq) AS total_frequency
			FROM (
			    SELECT m.word AS word, COUNT(*)::bigint AS freq
			    FROM documents d
			    JOIN LATERAL regexp_matches(lower(
			        concat_ws(' ', d.title, d.description, d.content)
			    ), '[a-z]{2,32}', 'g') AS m(word) ON TRUE
			    WHERE d.status = 'done'
			    GROUP BY m.word

			    UNION ALL

			    SELECT m.word AS word, COUNT(*)::bigint AS freq
			    FROM news_articles na
			    JOIN LATERAL regexp_matches(lower(
			        concat_ws(' ', na.title, na.description, na.content)
			    ), '[a-z]{2,32}', 'g') AS m(word) ON TRUE
			    GROUP BY m.word
			) all_words
			GROUP BY word
		`)
		if err != nil {
			return fmt.Errorf("failed to rebuild words table: %w", err)
		}
		return nil
	})
}

// WordFrequencies returns the contents of the words table.
func (s *Store) WordFrequencies(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT word, total_frequency FROM words`)
	if err != nil {
		return nil, fmt.Errorf("failed to select word frequencies: %w", err)
	}
	defer rows.Close()

	freqs := make(map[string]int64)
	for rows.Next() {
		var word string
		var freq int64
		if err := rows.Scan(&word, &freq); err != nil {
			return nil, err
		}
		freqs[word] = freq
	}
	return freqs, rows.Err()
}

// SyncLexicon stages the full dictionary, merges changed rows and
// deletes rows absent from the staged set.
func (s *Store) SyncLexicon(ctx context.Context, entries []domain.LexiconEntry) (upserted, deleted int64, err error) {
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			CREATE TEMP TABLE tmp_spellcheck_dictionary (
			  word TEXT PRIMARY KEY,
			  doc_frequency BIGINT NOT NULL,
			  total_frequency BIGINT NOT NULL,
			  external_frequency BIGINT NOT NULL,
			  popularity_score DOUBLE PRECISION NOT NULL
			) ON COMMIT DROP
		`)
		if err != nil {
			return fmt.Errorf("failed to create staging table: %w", err)
		}

		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []any{e.Word, e.DocFrequency, e.TotalFrequency, e.ExternalFrequency, e.PopularityScore})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"tmp_spellcheck_dictionary"},
			[]string{"word", "doc_frequency", "total_frequency", "external_frequency", "popularity_score"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to stage lexicon rows: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO spellcheck_dictionary(
			    word, doc_frequency, total_frequency, external_frequency, popularity_score
			)
			SELECT word, doc_frequency, total_frequency, external_frequency, popularity_score
			FROM tmp_spellcheck_dictionary
			ON CONFLICT (word) DO UPDATE
			SET doc_frequency = EXCLUDED.doc_frequency,
			    total_frequency = EXCLUDED.total_frequency,
			    external_frequency = EXCLUDED.external_frequency,
			    popularity_score = EXCLUDED.popularity_score
			WHERE spellcheck_dictionary.doc_frequency IS DISTINCT FROM EXCLUDED.doc_frequency
			   OR spellcheck_dictionary.total_frequency IS DISTINCT FROM EXCLUDED.total_frequency
			   OR spellcheck_dictionary.external_frequency IS DISTINCT FROM EXCLUDED.external_frequency
			   OR spellcheck_dictionary.popularity_score IS DISTINCT FROM EXCLUDED.popularity_score
		`)
		if err != nil {
			return fmt.Errorf("failed to merge lexicon rows: %w", err)
		}
		upserted = tag.RowsAffected()

		tag, err = tx.Exec(ctx, `
			DELETE FROM spellcheck_dictionary s
			WHERE NOT EXISTS (
			    SELECT 1 FROM tmp_spellcheck_dictionary t WHERE t.word = s.word
			)
		`)
		if err != nil {
			return fmt.Errorf("failed to prune lexicon rows: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return upserted, deleted, err
}
