// Package tokenize turns free text into stemmed term frequencies. The
// same procedure runs over documents and queries so stems always align.
package tokenize

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball"
)

// WordRe matches the raw word tokens considered for indexing.
var WordRe = regexp.MustCompile(`[a-z0-9]{2,}`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "no": {}, "not": {}, "of": {}, "on": {}, "or": {}, "such": {},
	"that": {}, "the": {}, "their": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "to": {}, "was": {}, "will": {}, "with": {},
}

// IsStopword reports whether the word is on the stopword list.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

// Stem reduces a token to its stem. Falls back to the lowercased token
// when the stemmer rejects the input.
func Stem(token string) string {
	stemmed, err := snowball.Stem(token, "english", false)
	if err != nil {
		return strings.ToLower(token)
	}
	return stemmed
}

// Tokenize lowercases text, extracts word tokens, drops stopwords,
// stems and counts frequencies.
func Tokenize(text string) map[string]int {
	counts := make(map[string]int)
	for _, token := range WordRe.FindAllString(strings.ToLower(text), -1) {
		if IsStopword(token) {
			continue
		}
		counts[Stem(token)]++
	}
	return counts
}
