package spellcheck

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"search-engine/db"
	"search-engine/domain"
	"search-engine/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init()
}

type fakeDictStore struct {
	entries         map[string]domain.LexiconEntry
	top             []domain.LexiconEntry
	candidates      map[string][]db.Candidate
	trigramErr      error
	lexiconQueries  [][]string
	firstLetterUsed bool
}

func (f *fakeDictStore) LexiconEntries(ctx context.Context, words []string) (map[string]domain.LexiconEntry, error) {
	f.lexiconQueries = append(f.lexiconQueries, words)
	found := make(map[string]domain.LexiconEntry)
	for _, word := range words {
		if entry, ok := f.entries[word]; ok {
			found[word] = entry
		}
	}
	return found, nil
}

func (f *fakeDictStore) TopLexiconEntries(ctx context.Context, limit int) ([]domain.LexiconEntry, error) {
	if limit < len(f.top) {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func (f *fakeDictStore) TrigramCandidates(ctx context.Context, word string) ([]db.Candidate, error) {
	if f.trigramErr != nil {
		return nil, f.trigramErr
	}
	return f.candidates[word], nil
}

func (f *fakeDictStore) FirstLetterCandidates(ctx context.Context, word string) ([]db.Candidate, error) {
	f.firstLetterUsed = true
	return f.candidates[word], nil
}

func TestServiceSuggest(t *testing.T) {
	store := &fakeDictStore{
		entries: map[string]domain.LexiconEntry{
			"status": {Word: "status", PopularityScore: 18},
		},
		candidates: map[string][]db.Candidate{
			"cloudfare": {
				{Word: "cloudflare", PopularityScore: 26},
				{Word: "cloudware", PopularityScore: 7},
			},
		},
	}
	service := NewService(store, filepath.Join(t.TempDir(), "missing.json"))

	t.Run("corrects the unknown word only", func(t *testing.T) {
		got, err := service.Suggest(context.Background(), "cloudfare status")
		require.NoError(t, err)
		assert.Equal(t, "cloudflare status", got)
	})

	t.Run("preserves casing", func(t *testing.T) {
		got, err := service.Suggest(context.Background(), "Cloudfare STATUS")
		require.NoError(t, err)
		assert.Equal(t, "Cloudflare STATUS", got)
	})

	t.Run("no suggestion when everything is known", func(t *testing.T) {
		got, err := service.Suggest(context.Background(), "status")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("stopword-only query yields nothing", func(t *testing.T) {
		got, err := service.Suggest(context.Background(), "the and")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestServiceSuggest_FrequencyTieBreak(t *testing.T) {
	// Equal distance and popularity: the candidate seen in more
	// documents wins. Word order alone would pick "cloudfarm".
	store := &fakeDictStore{
		entries: map[string]domain.LexiconEntry{},
		candidates: map[string][]db.Candidate{
			"cloudfare": {
				{Word: "cloudfarm", DocFrequency: 1, TotalFrequency: 3, PopularityScore: 10},
				{Word: "cloudware", DocFrequency: 50, TotalFrequency: 400, PopularityScore: 10},
			},
		},
	}
	service := NewService(store, filepath.Join(t.TempDir(), "missing.json"))

	got, err := service.Suggest(context.Background(), "cloudfare")
	require.NoError(t, err)
	assert.Equal(t, "cloudware", got)
}

func TestServiceSuggest_FirstLetterFallback(t *testing.T) {
	store := &fakeDictStore{
		entries: map[string]domain.LexiconEntry{},
		candidates: map[string][]db.Candidate{
			"cloudfare": {{Word: "cloudflare", PopularityScore: 26}},
		},
		trigramErr: &pgconn.PgError{Code: "42883"},
	}
	service := NewService(store, filepath.Join(t.TempDir(), "missing.json"))

	got, err := service.Suggest(context.Background(), "cloudfare")
	require.NoError(t, err)
	assert.Equal(t, "cloudflare", got)
	assert.True(t, store.firstLetterUsed)
}

func TestServiceMetaCache(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "spellcheck_meta.json")
	entries := []domain.LexiconEntry{
		{Word: "status", PopularityScore: 18},
	}
	require.NoError(t, WriteMeta(metaPath, entries, 0))

	store := &fakeDictStore{entries: map[string]domain.LexiconEntry{}}
	service := NewService(store, metaPath)

	got, err := service.Suggest(context.Background(), "status")
	require.NoError(t, err)
	assert.Empty(t, got)
	// "status" was served from the meta cache; no store lookup needed.
	assert.Empty(t, store.lexiconQueries)

	// Rewriting the meta file with a newer mtime invalidates the cache.
	newer := []domain.LexiconEntry{
		{Word: "search", PopularityScore: 22},
	}
	require.NoError(t, WriteMeta(metaPath, newer, 0))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(metaPath, future, future))

	_, err = service.Suggest(context.Background(), "search")
	require.NoError(t, err)
	assert.Empty(t, store.lexiconQueries)
}

func TestServiceWarmMeta(t *testing.T) {
	t.Run("writes meta when the file is missing", func(t *testing.T) {
		metaPath := filepath.Join(t.TempDir(), "meta.json")
		store := &fakeDictStore{top: []domain.LexiconEntry{
			{Word: "status", PopularityScore: 18},
			{Word: "search", PopularityScore: 12},
		}}
		service := NewService(store, metaPath)

		require.NoError(t, service.WarmMeta(context.Background(), 100))

		meta, err := LoadMeta(metaPath)
		require.NoError(t, err)
		assert.Len(t, meta.Words, 2)
	})

	t.Run("leaves an existing file alone", func(t *testing.T) {
		metaPath := filepath.Join(t.TempDir(), "meta.json")
		existing := []domain.LexiconEntry{{Word: "keep", PopularityScore: 5}}
		require.NoError(t, WriteMeta(metaPath, existing, 0))

		store := &fakeDictStore{top: []domain.LexiconEntry{{Word: "replace", PopularityScore: 9}}}
		service := NewService(store, metaPath)

		require.NoError(t, service.WarmMeta(context.Background(), 100))

		meta, err := LoadMeta(metaPath)
		require.NoError(t, err)
		require.Len(t, meta.Words, 1)
		assert.Equal(t, "keep", meta.Words[0].Word)
	})

	t.Run("empty dictionary writes nothing", func(t *testing.T) {
		metaPath := filepath.Join(t.TempDir(), "meta.json")
		service := NewService(&fakeDictStore{}, metaPath)

		require.NoError(t, service.WarmMeta(context.Background(), 100))

		_, err := os.Stat(metaPath)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestWriteMetaCapsWords(t *testing.T) {
	metaPath := filepath.Join(t.TempDir(), "meta.json")
	entries := []domain.LexiconEntry{
		{Word: "first", PopularityScore: 3},
		{Word: "second", PopularityScore: 2},
		{Word: "third", PopularityScore: 1},
	}
	require.NoError(t, WriteMeta(metaPath, entries, 2))

	meta, err := LoadMeta(metaPath)
	require.NoError(t, err)
	require.Len(t, meta.Words, 2)
	assert.Equal(t, "first", meta.Words[0].Word)
}
