package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigramCandidates(t *testing.T) {
	mock, store := newMockStore(t)
	rows := pgxmock.NewRows([]string{"word", "doc_frequency", "total_frequency", "popularity_score"}).
		AddRow("cloudflare", int64(130), int64(900), 26.0).
		AddRow("cloudware", int64(12), int64(45), 7.0)
	mock.ExpectQuery(`similarity\(word, \$1\) DESC`).
		WithArgs("cloudfare", 7, 11).
		WillReturnRows(rows)

	candidates, err := store.TrigramCandidates(context.Background(), "cloudfare")

	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "cloudflare", candidates[0].Word)
	assert.Equal(t, int64(130), candidates[0].DocFrequency)
	assert.Equal(t, int64(900), candidates[0].TotalFrequency)
	assert.Equal(t, 26.0, candidates[0].PopularityScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrigramCandidates_ShortWordLengthBand(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery(`similarity`).
		WithArgs("cat", 2, 5).
		WillReturnRows(pgxmock.NewRows([]string{"word", "doc_frequency", "total_frequency", "popularity_score"}))

	_, err := store.TrigramCandidates(context.Background(), "cat")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFirstLetterCandidates(t *testing.T) {
	mock, store := newMockStore(t)
	rows := pgxmock.NewRows([]string{"word", "doc_frequency", "total_frequency", "popularity_score"}).
		AddRow("status", int64(40), int64(220), 18.0)
	mock.ExpectQuery(`left\(word, 1\)`).
		WithArgs("statis", 4, 8).
		WillReturnRows(rows)

	candidates, err := store.FirstLetterCandidates(context.Background(), "statis")

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "status", candidates[0].Word)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLexiconEntries(t *testing.T) {
	t.Run("empty input skips the query", func(t *testing.T) {
		_, store := newMockStore(t)

		entries, err := store.LexiconEntries(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("maps rows by word", func(t *testing.T) {
		mock, store := newMockStore(t)
		rows := pgxmock.NewRows([]string{"word", "doc_frequency", "total_frequency", "external_frequency", "popularity_score"}).
			AddRow("status", int64(40), int64(220), int64(9000), 18.0)
		mock.ExpectQuery(`FROM spellcheck_dictionary`).
			WithArgs([]string{"status", "missing"}).
			WillReturnRows(rows)

		entries, err := store.LexiconEntries(context.Background(), []string{"status", "missing"})

		require.NoError(t, err)
		require.Contains(t, entries, "status")
		assert.Equal(t, 18.0, entries["status"].PopularityScore)
		assert.NotContains(t, entries, "missing")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
