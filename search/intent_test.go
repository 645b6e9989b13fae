package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "qwen chat", normalizeText("Qwen  Chat!"))
	assert.Equal(t, "https chat qwen ai", normalizeText("https://chat.qwen.ai/"))
	assert.Equal(t, "", normalizeText("!!!"))
}

func TestCompactText(t *testing.T) {
	assert.Equal(t, "httpswwwcloudflarestatuscom", compactText("https://www.cloudflarestatus.com/"))
	assert.Equal(t, "", compactText("---"))
}

func TestExtractQueryWords(t *testing.T) {
	assert.Equal(t, []string{"qwen", "chat"}, extractQueryWords("Qwen and the Chat qwen"))
	assert.Empty(t, extractQueryWords("the and of"))
}

func TestCountHits(t *testing.T) {
	words := []string{"qwen", "chat"}
	assert.Equal(t, 2, countHits("Qwen Chat", words))
	assert.Equal(t, 1, countHits("https://huggingface.co/blog/qwen-models", words))
	assert.Equal(t, 0, countHits("unrelated", words))
	assert.Equal(t, 0, countHits("qwen chat", nil))
}

func TestCompactWordHits(t *testing.T) {
	words := []string{"cloudflare", "status"}
	assert.Equal(t, 2, compactWordHits("httpswwwcloudflarestatuscom", words))
	assert.Equal(t, 1, compactWordHits("httpsblogcloudflarecommaintenance", words))
	assert.Equal(t, 0, compactWordHits("", words))
}

func TestNewQueryContext(t *testing.T) {
	t.Run("stopword only query yields nil", func(t *testing.T) {
		assert.Nil(t, newQueryContext("the and", 20, 0))
	})

	t.Run("derives words, phrase, and compact", func(t *testing.T) {
		qc := newQueryContext("Qwen Chat", 20, 0)
		require.NotNil(t, qc)
		assert.ElementsMatch(t, []string{"qwen", "chat"}, qc.terms)
		assert.Equal(t, []string{"qwen", "chat"}, qc.words)
		assert.Equal(t, "qwen chat", qc.phrase)
		assert.Equal(t, "qwenchat", qc.compact)
		assert.Equal(t, 2, qc.totalTerms)
	})

	t.Run("candidate limit", func(t *testing.T) {
		tests := []struct {
			name   string
			limit  int
			offset int
			want   int
		}{
			{"buffer dominates small pages", 20, 0, 220},
			{"tenfold dominates large pages", 100, 0, 1000},
			{"deep offset raises the limit", 100, 1500, 1800},
			{"capped at two thousand", 100, 5000, 2000},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				qc := newQueryContext("query", tt.limit, tt.offset)
				require.NotNil(t, qc)
				assert.Equal(t, tt.want, qc.candidateLimit)
			})
		}
	})
}

func TestIntentScore_ExactTitleBeatsHigherTokenScore(t *testing.T) {
	qc := newQueryContext("qwen chat", 20, 0)
	require.NotNil(t, qc)

	exact := qc.intentScore(28, 2, "Qwen Chat", "", "https://chat.qwen.ai/")
	frequent := qc.intentScore(180, 2, "AI model update", "", "https://huggingface.co/blog/qwen-models")

	assert.Greater(t, exact, frequent)
}

func TestIntentScore_CompactDomainBeatsHigherTokenScore(t *testing.T) {
	qc := newQueryContext("cloudflare status", 20, 0)
	require.NotNil(t, qc)

	compact := qc.intentScore(25, 2, "", "", "https://www.cloudflarestatus.com/")
	frequent := qc.intentScore(160, 2, "", "", "https://blog.cloudflare.com/maintenance")

	assert.Greater(t, compact, frequent)
}

func TestIntentScore_MonotonicInTokenScore(t *testing.T) {
	qc := newQueryContext("qwen chat", 20, 0)
	require.NotNil(t, qc)

	low := qc.intentScore(10, 2, "Qwen Chat", "desc", "https://chat.qwen.ai/")
	high := qc.intentScore(11, 2, "Qwen Chat", "desc", "https://chat.qwen.ai/")

	assert.GreaterOrEqual(t, high, low)
}

func TestIntentScore_PhraseBonuses(t *testing.T) {
	qc := newQueryContext("qwen chat", 20, 0)
	require.NotNil(t, qc)

	plain := qc.intentScore(0, 0, "something else", "", "")
	titled := qc.intentScore(0, 0, "The Qwen Chat launch", "", "")

	// Phrase in title (+140), both words as title hits (2*22), full
	// title coverage (+80).
	assert.InDelta(t, 140.0+44.0+80.0, titled-plain, 1e-9)
}

func TestIntentScore_NegativeTokenScoreClamped(t *testing.T) {
	qc := newQueryContext("qwen", 20, 0)
	require.NotNil(t, qc)

	assert.Equal(t, qc.intentScore(0, 0, "", "", ""), qc.intentScore(-50, 0, "", "", ""))
}
