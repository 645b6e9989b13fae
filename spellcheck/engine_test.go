package spellcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOSADistance(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target string
		want   int
		wantOK bool
	}{
		{"identical", "status", "status", 0, true},
		{"missing letter", "cloudfare", "cloudflare", 1, true},
		{"adjacent transposition", "cluodflare", "cloudflare", 1, true},
		{"trailing insert", "qwen", "qwent", 1, true},
		{"two edits", "stts", "status", 2, true},
		{"over the cap", "kitten", "sitting", 0, false},
		{"length gap over cap", "go", "golang", 0, false},
		{"empty source within cap", "", "go", 2, true},
		{"empty both", "", "", 0, true},
		{"case is ignored", "Status", "status", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := OSADistance(tt.source, tt.target, MaxEditDistance)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestGenerateDeletes(t *testing.T) {
	deletes := GenerateDeletes("cat", 1)
	assert.Equal(t, map[string]struct{}{"at": {}, "ct": {}, "ca": {}}, deletes)

	two := GenerateDeletes("word", 2)
	assert.Contains(t, two, "ord")
	assert.Contains(t, two, "rd")
	assert.Contains(t, two, "wo")
	// Distance-3 deletes are not reachable.
	assert.NotContains(t, two, "w")

	assert.Empty(t, GenerateDeletes("a", 2))
}

func TestPopularityScore(t *testing.T) {
	assert.Equal(t, 0.0, PopularityScore(0, 0, 0))
	assert.Greater(t, PopularityScore(10, 0, 0), PopularityScore(0, 10, 0))
	assert.Greater(t, PopularityScore(0, 0, 10), PopularityScore(0, 10, 0))
	// Negative inputs clamp to zero contribution.
	assert.Equal(t, 0.0, PopularityScore(-5, -5, -5))
}

func TestChooseCorrection(t *testing.T) {
	t.Run("unknown word takes the popular close candidate", func(t *testing.T) {
		candidates := []Candidate{
			{Word: "cloudflare", PopularityScore: 26},
			{Word: "cloudware", PopularityScore: 7},
		}
		got := ChooseCorrection("cloudfare", 0, candidates, MaxEditDistance)
		assert.Equal(t, "cloudflare", got)
	})

	t.Run("known word rejects weaker candidates", func(t *testing.T) {
		candidates := []Candidate{
			{Word: "statues", PopularityScore: 8},
			{Word: "states", PopularityScore: 10},
		}
		got := ChooseCorrection("status", 18, candidates, MaxEditDistance)
		assert.Empty(t, got)
	})

	t.Run("skips the word itself", func(t *testing.T) {
		candidates := []Candidate{{Word: "status", PopularityScore: 99}}
		assert.Empty(t, ChooseCorrection("status", 0, candidates, MaxEditDistance))
	})

	t.Run("short words require distance one", func(t *testing.T) {
		candidates := []Candidate{{Word: "cats", PopularityScore: 50}}
		// "ct" -> "cats" is distance 2 but len("ct") <= 3.
		assert.Empty(t, ChooseCorrection("ct", 0, candidates, MaxEditDistance))
	})

	t.Run("distance beats popularity", func(t *testing.T) {
		candidates := []Candidate{
			{Word: "wordy", PopularityScore: 5},
			{Word: "worlds", PopularityScore: 100},
		}
		// "word" -> "wordy" distance 1, -> "worlds" distance 2.
		assert.Equal(t, "wordy", ChooseCorrection("word", 0, candidates, MaxEditDistance))
	})

	t.Run("unknown distance-two candidate needs popularity 2.5", func(t *testing.T) {
		weak := []Candidate{{Word: "planted", PopularityScore: 2.0}}
		assert.Empty(t, ChooseCorrection("plntd", 0, weak, MaxEditDistance))
	})

	t.Run("deterministic tiebreak on word", func(t *testing.T) {
		candidates := []Candidate{
			{Word: "beat", PopularityScore: 5},
			{Word: "bear", PopularityScore: 5},
		}
		assert.Equal(t, "bear", ChooseCorrection("beay", 0, candidates, MaxEditDistance))
	})
}

func TestApplyCase(t *testing.T) {
	assert.Equal(t, "CLOUDFLARE", ApplyCase("CLOUDFARE", "cloudflare"))
	assert.Equal(t, "Cloudflare", ApplyCase("Cloudfare", "cloudflare"))
	assert.Equal(t, "cloudflare", ApplyCase("cloudfare", "cloudflare"))
	assert.Equal(t, "cloudflare", ApplyCase("cLoudfare", "cloudflare"))
}

func TestIterWords(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, IterWords("Hello, WORLD!"))
	assert.Empty(t, IterWords("12345 !!"))
	// Single letters and over-length runs fall outside the word shape.
	assert.Empty(t, IterWords("a"))
}

func TestNormalizeWord(t *testing.T) {
	assert.Equal(t, "status", NormalizeWord("  STATUS  "))
	assert.Equal(t, "", NormalizeWord("   "))
}
