// Package spellcheck suggests corrections for misspelled query words
// using a popularity-weighted lexicon and optimal string alignment
// distance.
package spellcheck

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// WordRe matches candidate words for correction: alphabetic runs
// between 2 and 32 characters.
var WordRe = regexp.MustCompile(`\b[a-zA-Z]{2,32}\b`)

// MaxEditDistance caps how far a correction may stray from the input.
const MaxEditDistance = 2

// Candidate is one lexicon word considered as a correction.
type Candidate struct {
	Word              string
	DocFrequency      int64
	TotalFrequency    int64
	ExternalFrequency int64
	PopularityScore   float64
}

// NormalizeWord lowercases and trims a word.
func NormalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// IterWords yields the correctable words of a text in order.
func IterWords(text string) []string {
	return WordRe.FindAllString(strings.ToLower(text), -1)
}

// GenerateDeletes returns every string reachable from word by up to
// maxDistance single-character deletions.
func GenerateDeletes(word string, maxDistance int) map[string]struct{} {
	deletes := make(map[string]struct{})
	frontier := map[string]struct{}{word: {}}

	for range maxDistance {
		next := make(map[string]struct{})
		for item := range frontier {
			if len(item) < 2 {
				continue
			}
			for i := range len(item) {
				del := item[:i] + item[i+1:]
				if _, seen := deletes[del]; seen {
					continue
				}
				deletes[del] = struct{}{}
				next[del] = struct{}{}
			}
		}
		frontier = next
	}
	return deletes
}

// OSADistance computes optimal string alignment distance (edits plus
// adjacent transpositions) between two words. Returns ok=false when
// the distance exceeds maxDistance; rows are abandoned early once
// every cell in a row is over the cap.
func OSADistance(source, target string, maxDistance int) (int, bool) {
	source = NormalizeWord(source)
	target = NormalizeWord(target)

	if source == target {
		return 0, true
	}
	if source == "" || target == "" {
		distance := len(source)
		if len(target) > distance {
			distance = len(target)
		}
		return distance, distance <= maxDistance
	}
	diff := len(source) - len(target)
	if diff < 0 {
		diff = -diff
	}
	if diff > maxDistance {
		return 0, false
	}

	rows := len(source) + 1
	cols := len(target) + 1
	dp := make([][]int, rows)
	for i := range dp {
		dp[i] = make([]int, cols)
		dp[i][0] = i
	}
	for j := 0; j < cols; j++ {
		dp[0][j] = j
	}

	for i := 1; i < rows; i++ {
		rowMin := maxDistance + 1
		for j := 1; j < cols; j++ {
			cost := 1
			if source[i-1] == target[j-1] {
				cost = 0
			}
			value := dp[i-1][j] + 1
			if v := dp[i][j-1] + 1; v < value {
				value = v
			}
			if v := dp[i-1][j-1] + cost; v < value {
				value = v
			}
			if i > 1 && j > 1 && source[i-1] == target[j-2] && source[i-2] == target[j-1] {
				if v := dp[i-2][j-2] + 1; v < value {
					value = v
				}
			}
			dp[i][j] = value
			if value < rowMin {
				rowMin = value
			}
		}
		if rowMin > maxDistance {
			return 0, false
		}
	}

	distance := dp[rows-1][cols-1]
	if distance > maxDistance {
		return 0, false
	}
	return distance, true
}

// PopularityScore folds the three frequency signals into one value.
func PopularityScore(docFrequency, totalFrequency, externalFrequency int64) float64 {
	return math.Log1p(math.Max(float64(docFrequency), 0))*4.0 +
		math.Log1p(math.Max(float64(totalFrequency), 0))*2.0 +
		math.Log1p(math.Max(float64(externalFrequency), 0))*3.0
}

// ChooseCorrection picks the best candidate for a suspect word, or ""
// when no candidate is convincing enough. knownPopularity is the
// suspect's own lexicon popularity, 0 when unknown. Ranking: lowest
// distance, then highest popularity, doc frequency, total frequency,
// then alphabetical. A known word is only corrected by a candidate
// sufficiently more popular than itself.
func ChooseCorrection(word string, knownPopularity float64, candidates []Candidate, maxDistance int) string {
	normalized := NormalizeWord(word)
	if normalized == "" {
		return ""
	}

	var best *Candidate
	bestDistance := 0

	better := func(c Candidate, distance int) bool {
		if best == nil {
			return true
		}
		if distance != bestDistance {
			return distance < bestDistance
		}
		if c.PopularityScore != best.PopularityScore {
			return c.PopularityScore > best.PopularityScore
		}
		if c.DocFrequency != best.DocFrequency {
			return c.DocFrequency > best.DocFrequency
		}
		if c.TotalFrequency != best.TotalFrequency {
			return c.TotalFrequency > best.TotalFrequency
		}
		return c.Word < best.Word
	}

	for i := range candidates {
		candidate := candidates[i]
		if candidate.Word == normalized {
			continue
		}
		distance, ok := OSADistance(normalized, candidate.Word, maxDistance)
		if !ok {
			continue
		}
		if len(normalized) <= 3 && distance > 1 {
			continue
		}
		if better(candidate, distance) {
			best = &candidate
			bestDistance = distance
		}
	}

	if best == nil {
		return ""
	}

	if knownPopularity > 0.0 {
		required := 4.0
		if bestDistance == 1 {
			required = 1.8
		}
		if best.PopularityScore < knownPopularity*required {
			return ""
		}
	} else {
		minimum := 2.5
		if bestDistance == 1 {
			minimum = 0.5
		}
		if best.PopularityScore < minimum {
			return ""
		}
	}
	return best.Word
}

// ApplyCase transfers the casing shape of the original word onto its
// replacement: all-caps stays all-caps, a capitalized word stays
// capitalized.
func ApplyCase(original, replacement string) string {
	if original == strings.ToUpper(original) && strings.ContainsFunc(original, unicode.IsLetter) {
		return strings.ToUpper(replacement)
	}
	if len(original) > 0 && unicode.IsUpper(rune(original[0])) &&
		original[1:] == strings.ToLower(original[1:]) && replacement != "" {
		return strings.ToUpper(replacement[:1]) + strings.ToLower(replacement[1:])
	}
	return replacement
}
