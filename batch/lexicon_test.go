package batch

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"search-engine/domain"
	"search-engine/spellcheck"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCountedLine(t *testing.T) {
	t.Run("valid line", func(t *testing.T) {
		word, score := parseCountedLine("hello 12345", 1.0)
		assert.Equal(t, "hello", word)
		assert.Equal(t, int64(math.Log1p(12345)*6.0), score)
	})

	t.Run("comma separated count", func(t *testing.T) {
		word, score := parseCountedLine("world 1,000", 1.0)
		assert.Equal(t, "world", word)
		assert.Equal(t, int64(math.Log1p(1000)*6.0), score)
	})

	t.Run("rejects non-alpha words", func(t *testing.T) {
		word, _ := parseCountedLine("h3llo 10", 1.0)
		assert.Empty(t, word)
	})

	t.Run("rejects single characters", func(t *testing.T) {
		word, _ := parseCountedLine("a 10", 1.0)
		assert.Empty(t, word)
	})

	t.Run("rejects missing count", func(t *testing.T) {
		word, _ := parseCountedLine("alone", 1.0)
		assert.Empty(t, word)
	})
}

func TestParseRankedLine(t *testing.T) {
	t.Run("top rank scores highest", func(t *testing.T) {
		_, first := parseRankedLine("the", 1, 20000, 1.0)
		_, last := parseRankedLine("zyzzyva", 20000, 20000, 1.0)
		assert.Greater(t, first, last)
		assert.Equal(t, int64(math.Log1p(1)*5.0), last)
	})

	t.Run("weight scales the score", func(t *testing.T) {
		_, single := parseRankedLine("word", 10, 100, 1.0)
		_, double := parseRankedLine("word", 10, 100, 2.0)
		assert.Equal(t, single*2, double)
	})
}

func TestBuildEntries(t *testing.T) {
	entries := buildEntries(
		map[string]int64{"corpus": 40, "shared": 10},
		map[string]int64{"external": 30, "shared": 20},
	)

	byWord := map[string]domain.LexiconEntry{}
	for _, e := range entries {
		byWord[e.Word] = e
	}
	require.Len(t, byWord, 3)

	shared := byWord["shared"]
	assert.Equal(t, int64(10), shared.TotalFrequency)
	assert.Equal(t, int64(20), shared.ExternalFrequency)
	assert.InDelta(t, spellcheck.PopularityScore(0, 10, 20), shared.PopularityScore, 1e-9)
}

func TestIsLexiconWord(t *testing.T) {
	assert.True(t, isLexiconWord("go"))
	assert.True(t, isLexiconWord("search"))
	assert.False(t, isLexiconWord("a"))
	assert.False(t, isLexiconWord("h3llo"))
	assert.False(t, isLexiconWord("Mixed"))
	assert.False(t, isLexiconWord(""))
}

type fakeLexiconStore struct {
	frequencies map[string]int64
	synced      []domain.LexiconEntry
	rebuilt     bool
}

func (f *fakeLexiconStore) RebuildWordsTable(ctx context.Context) error {
	f.rebuilt = true
	return nil
}

func (f *fakeLexiconStore) WordFrequencies(ctx context.Context) (map[string]int64, error) {
	return f.frequencies, nil
}

func (f *fakeLexiconStore) SyncLexicon(ctx context.Context, entries []domain.LexiconEntry) (int64, int64, error) {
	f.synced = entries
	return int64(len(entries)), 0, nil
}

func TestLexiconBuilderRun(t *testing.T) {
	counted := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "hello 1000")
		fmt.Fprintln(w, "search 500")
	}))
	defer counted.Close()
	ranked := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "hello")
		fmt.Fprintln(w, "engine")
	}))
	defer ranked.Close()

	store := &fakeLexiconStore{frequencies: map[string]int64{"corpus": 42}}
	metaPath := filepath.Join(t.TempDir(), "meta.json")
	builder := NewLexiconBuilder(store, metaPath, 10)
	builder.sources = []ExternalSource{
		{Name: "counted", URL: counted.URL, Mode: "counted", Limit: 100, Weight: 1.0},
		{Name: "ranked", URL: ranked.URL, Mode: "ranked", Limit: 100, Weight: 1.0},
	}

	err := builder.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, store.rebuilt)

	byWord := map[string]domain.LexiconEntry{}
	for _, e := range store.synced {
		byWord[e.Word] = e
	}
	assert.Contains(t, byWord, "corpus")
	assert.Contains(t, byWord, "engine")
	// "hello" appears in both lists and accumulates both scores.
	hello := byWord["hello"]
	assert.Greater(t, hello.ExternalFrequency, byWord["search"].ExternalFrequency)

	// Entries arrive sorted by popularity, and the meta file mirrors them.
	for i := 1; i < len(store.synced); i++ {
		assert.GreaterOrEqual(t, store.synced[i-1].PopularityScore, store.synced[i].PopularityScore)
	}
	meta, err := spellcheck.LoadMeta(metaPath)
	require.NoError(t, err)
	assert.Len(t, meta.Words, len(store.synced))
}

func TestLexiconBuilderRun_SourceFailureIsIsolated(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	store := &fakeLexiconStore{frequencies: map[string]int64{"corpus": 42}}
	builder := NewLexiconBuilder(store, filepath.Join(t.TempDir(), "meta.json"), 10)
	builder.sources = []ExternalSource{
		{Name: "broken", URL: broken.URL, Mode: "counted", Limit: 100, Weight: 1.0},
	}

	err := builder.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, store.synced, 1)
	assert.Equal(t, "corpus", store.synced[0].Word)
}
