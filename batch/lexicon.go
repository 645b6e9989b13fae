package batch

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"search-engine/domain"
	"search-engine/logger"
	"search-engine/spellcheck"
)

// ExternalSource is one downloadable word-frequency list.
type ExternalSource struct {
	Name   string
	URL    string
	Mode   string // "counted" or "ranked"
	Limit  int
	Weight float64
}

// DefaultExternalSources are the two canonical English frequency lists
// folded into the lexicon's external signal.
var DefaultExternalSources = []ExternalSource{
	{
		Name:   "frequencywords-50k",
		URL:    "https://raw.githubusercontent.com/hermitdave/FrequencyWords/master/content/2018/en/en_50k.txt",
		Mode:   "counted",
		Limit:  50000,
		Weight: 1.0,
	},
	{
		Name:   "google-20k",
		URL:    "https://raw.githubusercontent.com/first20hours/google-10000-english/master/20k.txt",
		Mode:   "ranked",
		Limit:  20000,
		Weight: 1.0,
	},
}

// LexiconStore is the storage surface of the dictionary rebuild.
type LexiconStore interface {
	RebuildWordsTable(ctx context.Context) error
	WordFrequencies(ctx context.Context) (map[string]int64, error)
	SyncLexicon(ctx context.Context, entries []domain.LexiconEntry) (upserted, deleted int64, err error)
}

// LexiconBuilder rebuilds the spellcheck dictionary from corpus and
// external word frequencies.
type LexiconBuilder struct {
	store        LexiconStore
	client       *http.Client
	sources      []ExternalSource
	metaPath     string
	metaMaxWords int
}

func NewLexiconBuilder(store LexiconStore, metaPath string, metaMaxWords int) *LexiconBuilder {
	return &LexiconBuilder{
		store:        store,
		client:       &http.Client{Timeout: 8 * time.Second},
		sources:      DefaultExternalSources,
		metaPath:     metaPath,
		metaMaxWords: metaMaxWords,
	}
}

// Run rebuilds the words table, folds in the external lists, scores
// every word and syncs the dictionary plus the meta file.
func (b *LexiconBuilder) Run(ctx context.Context) error {
	external := b.collectExternalFrequencies(ctx)

	if err := b.store.RebuildWordsTable(ctx); err != nil {
		return err
	}
	totalFrequency, err := b.collectCorpusFrequencies(ctx)
	if err != nil {
		return err
	}

	entries := buildEntries(totalFrequency, external)
	if len(entries) == 0 {
		logger.Logger.Warn("spellcheck dictionary rebuild skipped", "reason", "no words collected")
		return nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PopularityScore > entries[j].PopularityScore
	})

	if err := spellcheck.WriteMeta(b.metaPath, entries, b.metaMaxWords); err != nil {
		logger.Logger.Error("failed to write spellcheck meta", "path", b.metaPath, "error", err)
	}

	upserted, deleted, err := b.store.SyncLexicon(ctx, entries)
	if err != nil {
		return err
	}
	logger.Logger.Info("synced spellcheck dictionary",
		"source_words", len(entries), "changed_rows", upserted, "removed_rows", deleted)
	return nil
}

func (b *LexiconBuilder) collectCorpusFrequencies(ctx context.Context) (map[string]int64, error) {
	raw, err := b.store.WordFrequencies(ctx)
	if err != nil {
		return nil, err
	}

	frequencies := make(map[string]int64, len(raw))
	for word, freq := range raw {
		normalized := spellcheck.NormalizeWord(word)
		if !isLexiconWord(normalized) {
			continue
		}
		frequencies[normalized] += freq
	}
	return frequencies, nil
}

func (b *LexiconBuilder) collectExternalFrequencies(ctx context.Context) map[string]int64 {
	external := make(map[string]int64)

	for _, source := range b.sources {
		loaded, err := b.loadSource(ctx, source, external)
		if err != nil {
			logger.Logger.Error("failed to load external words", "source", source.URL, "error", err)
			continue
		}
		logger.Logger.Info("loaded external words", "count", loaded, "source", source.Name)
	}
	return external
}

func (b *LexiconBuilder) loadSource(ctx context.Context, source ExternalSource, external map[string]int64) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "search-engine-spellcheck/1.0")

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	loaded := 0
	rank := 0
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rank++
		if loaded >= source.Limit {
			break
		}

		var word string
		var score int64
		if source.Mode == "counted" {
			word, score = parseCountedLine(line, source.Weight)
		} else {
			word, score = parseRankedLine(line, rank, source.Limit, source.Weight)
		}
		if word == "" || score <= 0 {
			continue
		}

		external[word] += score
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return loaded, fmt.Errorf("failed to read source: %w", err)
	}
	return loaded, nil
}

// parseCountedLine handles "word count" lines, scoring them by
// log-damped count.
func parseCountedLine(line string, weight float64) (string, int64) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return "", 0
	}

	word := spellcheck.NormalizeWord(parts[0])
	if !isLexiconWord(word) {
		return "", 0
	}

	count, err := strconv.ParseInt(strings.ReplaceAll(parts[1], ",", ""), 10, 64)
	if err != nil || count < 0 {
		return "", 0
	}
	return word, int64(math.Log1p(float64(count)) * 6.0 * weight)
}

// parseRankedLine handles one-word-per-line ranked lists, scoring by
// log-damped inverse rank.
func parseRankedLine(line string, rank, limit int, weight float64) (string, int64) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", 0
	}

	word := spellcheck.NormalizeWord(parts[0])
	if !isLexiconWord(word) {
		return "", 0
	}

	inverse := limit - rank + 1
	if inverse < 1 {
		inverse = 1
	}
	return word, int64(math.Log1p(float64(inverse)) * 5.0 * weight)
}

func buildEntries(totalFrequency, external map[string]int64) []domain.LexiconEntry {
	words := make(map[string]struct{}, len(totalFrequency)+len(external))
	for word := range totalFrequency {
		words[word] = struct{}{}
	}
	for word := range external {
		words[word] = struct{}{}
	}

	var entries []domain.LexiconEntry
	for word := range words {
		if !isLexiconWord(word) {
			continue
		}
		totalFreq := totalFrequency[word]
		extFreq := external[word]
		if totalFreq == 0 && extFreq == 0 {
			continue
		}
		entries = append(entries, domain.LexiconEntry{
			Word:              word,
			TotalFrequency:    totalFreq,
			ExternalFrequency: extFreq,
			PopularityScore:   spellcheck.PopularityScore(0, totalFreq, extFreq),
		})
	}
	return entries
}

// isLexiconWord accepts alphabetic words between 2 and 32 characters.
func isLexiconWord(word string) bool {
	if len(word) < 2 || len(word) > 32 {
		return false
	}
	for i := 0; i < len(word); i++ {
		if word[i] < 'a' || word[i] > 'z' {
			return false
		}
	}
	return true
}
