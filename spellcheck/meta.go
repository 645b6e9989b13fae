package spellcheck

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"search-engine/domain"
)

// Meta is the on-disk snapshot of the lexicon's most popular words,
// written by the batch dictionary rebuild and memory-mapped into the
// service's cache between rebuilds.
type Meta struct {
	GeneratedAt string                `json:"generated_at"`
	Words       []domain.LexiconEntry `json:"words"`
}

// WriteMeta writes the top maxWords entries (already sorted by
// popularity) to path, creating parent directories as needed.
func WriteMeta(path string, entries []domain.LexiconEntry, maxWords int) error {
	if maxWords > 0 && len(entries) > maxWords {
		entries = entries[:maxWords]
	}
	meta := Meta{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Words:       entries,
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal spellcheck meta: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create meta directory: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write spellcheck meta: %w", err)
	}
	return nil
}

// LoadMeta reads a meta file back into memory.
func LoadMeta(path string) (*Meta, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spellcheck meta: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode spellcheck meta: %w", err)
	}
	return &meta, nil
}
