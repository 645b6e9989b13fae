package spellcheck

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"search-engine/db"
	"search-engine/domain"
	"search-engine/logger"
	"search-engine/tokenize"

	"github.com/jackc/pgx/v5/pgconn"
)

// A word this popular is trusted as spelled correctly.
const suspectPopularityFloor = 3.0

// Store is the dictionary access the service needs.
type Store interface {
	LexiconEntries(ctx context.Context, words []string) (map[string]domain.LexiconEntry, error)
	TopLexiconEntries(ctx context.Context, limit int) ([]domain.LexiconEntry, error)
	TrigramCandidates(ctx context.Context, word string) ([]db.Candidate, error)
	FirstLetterCandidates(ctx context.Context, word string) ([]db.Candidate, error)
}

// Service answers spellcheck queries against the lexicon, preferring
// the batch-written meta file over store lookups.
type Service struct {
	store    Store
	metaPath string

	mu        sync.RWMutex
	cache     map[string]domain.LexiconEntry
	cacheTime time.Time
}

func NewService(store Store, metaPath string) *Service {
	return &Service{store: store, metaPath: metaPath}
}

// Suggest returns a corrected form of q, or "" when every word looks
// fine or no candidate was convincing.
func (s *Service) Suggest(ctx context.Context, q string) (string, error) {
	words := uniqueQueryWords(q)
	if len(words) == 0 {
		return "", nil
	}

	entries, err := s.lookupEntries(ctx, words)
	if err != nil {
		return "", err
	}

	corrections := make(map[string]string)
	for _, word := range words {
		entry, known := entries[word]
		if known && entry.PopularityScore >= suspectPopularityFloor {
			continue
		}

		candidates, err := s.candidates(ctx, word)
		if err != nil {
			logger.Logger.Warn("candidate lookup failed", "word", word, "error", err)
			continue
		}

		knownPopularity := 0.0
		if known {
			knownPopularity = entry.PopularityScore
		}
		if corrected := ChooseCorrection(word, knownPopularity, candidates, MaxEditDistance); corrected != "" {
			corrections[word] = corrected
		}
	}

	if len(corrections) == 0 {
		return "", nil
	}
	return rewriteQuery(q, corrections), nil
}

// WarmMeta writes a meta file from the store's top entries when none
// exists yet, so a fresh node can serve from cache before the next
// batch cycle rewrites the file.
func (s *Service) WarmMeta(ctx context.Context, maxWords int) error {
	if _, err := os.Stat(s.metaPath); err == nil {
		return nil
	}

	entries, err := s.store.TopLexiconEntries(ctx, maxWords)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	if err := WriteMeta(s.metaPath, entries, maxWords); err != nil {
		return err
	}
	logger.Logger.Info("spellcheck meta warmed from store", "path", s.metaPath, "words", len(entries))
	return nil
}

func uniqueQueryWords(q string) []string {
	var words []string
	seen := make(map[string]struct{})
	for _, word := range IterWords(q) {
		if tokenize.IsStopword(word) {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	return words
}

// lookupEntries serves words from the meta cache and falls back to the
// store for the remainder.
func (s *Service) lookupEntries(ctx context.Context, words []string) (map[string]domain.LexiconEntry, error) {
	cache := s.metaCache()

	entries := make(map[string]domain.LexiconEntry, len(words))
	var missing []string
	for _, word := range words {
		if entry, ok := cache[word]; ok {
			entries[word] = entry
		} else {
			missing = append(missing, word)
		}
	}

	// With no cache at all, every word goes to the store.
	if cache == nil {
		missing = words
	}
	if len(missing) == 0 {
		return entries, nil
	}

	fetched, err := s.store.LexiconEntries(ctx, missing)
	if err != nil {
		return nil, err
	}
	for word, entry := range fetched {
		entries[word] = entry
	}
	return entries, nil
}

// metaCache returns the cached lexicon, reloading the meta file when
// its mtime changed since the last load. Returns nil when no meta file
// is available.
func (s *Service) metaCache() map[string]domain.LexiconEntry {
	info, err := os.Stat(s.metaPath)
	if err != nil {
		return nil
	}

	s.mu.RLock()
	fresh := s.cache != nil && !info.ModTime().After(s.cacheTime)
	cache := s.cache
	s.mu.RUnlock()
	if fresh {
		return cache
	}

	meta, err := LoadMeta(s.metaPath)
	if err != nil {
		logger.Logger.Warn("failed to load spellcheck meta", "path", s.metaPath, "error", err)
		return nil
	}

	cache = make(map[string]domain.LexiconEntry, len(meta.Words))
	for _, entry := range meta.Words {
		cache[entry.Word] = entry
	}

	s.mu.Lock()
	s.cache = cache
	s.cacheTime = info.ModTime()
	s.mu.Unlock()

	logger.Logger.Info("reloaded spellcheck meta", "path", s.metaPath, "words", len(cache))
	return cache
}

func (s *Service) candidates(ctx context.Context, word string) ([]Candidate, error) {
	rows, err := s.store.TrigramCandidates(ctx, word)
	if err != nil {
		if !isTrigramUnavailable(err) {
			return nil, err
		}
		rows, err = s.store.FirstLetterCandidates(ctx, word)
		if err != nil {
			return nil, err
		}
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, Candidate{
			Word:            row.Word,
			DocFrequency:    row.DocFrequency,
			TotalFrequency:  row.TotalFrequency,
			PopularityScore: row.PopularityScore,
		})
	}
	return candidates, nil
}

// isTrigramUnavailable detects a database without the pg_trgm
// extension: the % operator or its opclass is undefined.
func isTrigramUnavailable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// 42883 undefined_function, 42704 undefined_object
	return pgErr.Code == "42883" || pgErr.Code == "42704"
}

// rewriteQuery replaces each corrected word in place, carrying the
// original casing shape over to the replacement.
func rewriteQuery(q string, corrections map[string]string) string {
	return WordRe.ReplaceAllStringFunc(q, func(match string) string {
		replacement, ok := corrections[NormalizeWord(match)]
		if !ok {
			return match
		}
		return ApplyCase(match, replacement)
	})
}
