package db

import (
	"context"
	"fmt"

	"search-engine/domain"

	"github.com/jackc/pgx/v5"
)

// LexiconEntries loads the dictionary rows for the given words.
func (s *Store) LexiconEntries(ctx context.Context, words []string) (map[string]domain.LexiconEntry, error) {
	if len(words) == 0 {
		return map[string]domain.LexiconEntry{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT word, doc_frequency, total_frequency, external_frequency, popularity_score
		FROM spellcheck_dictionary
		WHERE word = ANY($1)
	`, words)
	if err != nil {
		return nil, fmt.Errorf("failed to query lexicon entries: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]domain.LexiconEntry)
	for rows.Next() {
		var e domain.LexiconEntry
		if err := rows.Scan(&e.Word, &e.DocFrequency, &e.TotalFrequency, &e.ExternalFrequency, &e.PopularityScore); err != nil {
			return nil, err
		}
		entries[e.Word] = e
	}
	return entries, rows.Err()
}

// TopLexiconEntries returns the most popular dictionary rows. The
// spellcheck service uses it to rebuild its in-memory lexicon when the
// meta file is missing.
func (s *Store) TopLexiconEntries(ctx context.Context, limit int) ([]domain.LexiconEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT word, doc_frequency, total_frequency, external_frequency, popularity_score
		FROM spellcheck_dictionary
		ORDER BY popularity_score DESC, word ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top lexicon entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LexiconEntry
	for rows.Next() {
		var e domain.LexiconEntry
		if err := rows.Scan(&e.Word, &e.DocFrequency, &e.TotalFrequency, &e.ExternalFrequency, &e.PopularityScore); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Candidate is one correction candidate pulled from the dictionary.
type Candidate struct {
	Word            string
	DocFrequency    int64
	TotalFrequency  int64
	PopularityScore float64
}

// TrigramCandidates returns dictionary words lexically close to the
// suspect: within two characters of its length, popular enough to be
// plausible, ordered by trigram similarity then popularity. Requires
// the pg_trgm extension.
func (s *Store) TrigramCandidates(ctx context.Context, word string) ([]Candidate, error) {
	minLen := len(word) - 2
	if minLen < 2 {
		minLen = 2
	}
	maxLen := len(word) + 2

	rows, err := s.pool.Query(ctx, `
		SELECT word, doc_frequency, total_frequency, popularity_score
		FROM spellcheck_dictionary
		WHERE length(word) BETWEEN $2 AND $3
		  AND popularity_score >= 2.0
		  AND word % $1
		ORDER BY similarity(word, $1) DESC, popularity_score DESC
		LIMIT 120
	`, word, minLen, maxLen)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigram candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// FirstLetterCandidates is the degraded candidate query for databases
// without pg_trgm. Same length band and popularity floor, keyed on the
// suspect's first letter.
func (s *Store) FirstLetterCandidates(ctx context.Context, word string) ([]Candidate, error) {
	if word == "" {
		return nil, nil
	}
	minLen := len(word) - 2
	if minLen < 2 {
		minLen = 2
	}
	maxLen := len(word) + 2

	rows, err := s.pool.Query(ctx, `
		SELECT word, doc_frequency, total_frequency, popularity_score
		FROM spellcheck_dictionary
		WHERE length(word) BETWEEN $2 AND $3
		  AND popularity_score >= 2.0
		  AND left(word, 1) = left($1, 1)
		ORDER BY popularity_score DESC
		LIMIT 120
	`, word, minLen, maxLen)
	if err != nil {
		return nil, fmt.Errorf("failed to query first-letter candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

func scanCandidates(rows pgx.Rows) ([]Candidate, error) {
	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.Word, &c.DocFrequency, &c.TotalFrequency, &c.PopularityScore); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
