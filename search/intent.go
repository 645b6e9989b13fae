// Package search ranks stored candidates against a free-text query.
// Candidate retrieval is a broad token match in SQL; the ordering users
// see comes from the intent score computed here.
package search

import (
	"math"
	"regexp"
	"strings"

	"search-engine/tokenize"
)

const (
	maxCandidates   = 2000
	candidateBuffer = 200
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeText lowercases and collapses every run of non-alphanumerics
// into a single space.
func normalizeText(text string) string {
	return strings.TrimSpace(nonAlnumRe.ReplaceAllString(strings.ToLower(text), " "))
}

// compactText lowercases and strips every non-alphanumeric rune.
func compactText(text string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(text), "")
}

// queryContext carries everything derived from the raw query string
// that ranking needs.
type queryContext struct {
	terms          []string
	words          []string
	phrase         string
	compact        string
	totalTerms     int
	candidateLimit int
}

// newQueryContext tokenizes the query. Returns nil when the query
// yields no index terms, which callers treat as an empty result.
func newQueryContext(q string, limit, offset int) *queryContext {
	counts := tokenize.Tokenize(q)
	if len(counts) == 0 {
		return nil
	}
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}

	candidateLimit := offset + limit + candidateBuffer
	if tenfold := limit * 10; tenfold > candidateLimit {
		candidateLimit = tenfold
	}
	if candidateLimit > maxCandidates {
		candidateLimit = maxCandidates
	}

	words := extractQueryWords(q)
	return &queryContext{
		terms:          terms,
		words:          words,
		phrase:         normalizeText(q),
		compact:        strings.Join(words, ""),
		totalTerms:     len(terms),
		candidateLimit: candidateLimit,
	}
}

// extractQueryWords returns the distinct non-stopword raw tokens of the
// query in order of first appearance. These are unstemmed, unlike the
// index terms.
func extractQueryWords(q string) []string {
	var words []string
	seen := map[string]struct{}{}
	for _, word := range tokenize.WordRe.FindAllString(strings.ToLower(q), -1) {
		if tokenize.IsStopword(word) {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		words = append(words, word)
		seen[word] = struct{}{}
	}
	return words
}

// countHits counts how many query words appear as whole tokens in text.
func countHits(text string, queryWords []string) int {
	if len(queryWords) == 0 {
		return 0
	}
	tokens := map[string]struct{}{}
	for _, token := range tokenize.WordRe.FindAllString(strings.ToLower(text), -1) {
		tokens[token] = struct{}{}
	}
	hits := 0
	for _, word := range queryWords {
		if _, ok := tokens[word]; ok {
			hits++
		}
	}
	return hits
}

// compactWordHits counts query words appearing as substrings of the
// compacted text.
func compactWordHits(compact string, queryWords []string) int {
	if len(queryWords) == 0 || compact == "" {
		return 0
	}
	hits := 0
	for _, word := range queryWords {
		if strings.Contains(compact, word) {
			hits++
		}
	}
	return hits
}

// baseScore dampens the raw token score so that phrase and coverage
// signals can outrank sheer term frequency.
func baseScore(tokenScore float64) float64 {
	return math.Log1p(math.Max(tokenScore, 0)) * 12.0
}

// coverageBonus rewards candidates matching many distinct query terms,
// with an extra bump for matching all of them.
func (c *queryContext) coverageBonus(matchedTerms int) float64 {
	if c.totalTerms == 0 {
		return 0
	}
	bonus := float64(matchedTerms) / float64(c.totalTerms) * 25.0
	if matchedTerms == c.totalTerms {
		bonus += 40.0
	}
	return bonus
}

// intentScore combines the damped token score with coverage, phrase,
// and word-hit signals over the candidate's title, description, and
// URL.
func (c *queryContext) intentScore(tokenScore float64, matchedTerms int, title, description, url string) float64 {
	score := baseScore(tokenScore)
	score += c.coverageBonus(matchedTerms)

	normalizedTitle := normalizeText(title)
	normalizedDescription := normalizeText(description)
	normalizedURL := normalizeText(url)
	compactURL := compactText(url)

	if c.phrase != "" {
		if strings.Contains(normalizedTitle, c.phrase) {
			score += 140.0
		}
		if strings.Contains(normalizedURL, c.phrase) {
			score += 70.0
		}
		if strings.Contains(normalizedDescription, c.phrase) {
			score += 25.0
		}
	}
	if c.compact != "" && strings.Contains(compactURL, c.compact) {
		score += 90.0
	}

	titleHits := countHits(title, c.words)
	urlHits := countHits(url, c.words)
	compactHits := compactWordHits(compactURL, c.words)
	score += float64(titleHits) * 22.0
	score += float64(urlHits) * 16.0
	score += float64(compactHits) * 12.0

	if n := len(c.words); n > 0 {
		if titleHits == n {
			score += 80.0
		}
		if urlHits == n {
			score += 55.0
		}
		if compactHits == n {
			score += 45.0
		}
	}

	return score
}
