// Package batch holds the periodic analytics jobs: duplicate
// fingerprints, the link graph and PageRank, BM25 statistics and the
// spellcheck lexicon rebuild.
package batch

import (
	"context"
	"hash/fnv"
	"strings"

	"search-engine/logger"
)

// SimHash64 computes a 64-bit SimHash over whitespace-split tokens:
// each token's fnv-64a hash contributes +1 to every set bit column and
// -1 to every unset one, and the fingerprint keeps the bits whose
// column sum is positive.
func SimHash64(tokens []string) uint64 {
	var bitWeights [64]int
	for _, token := range tokens {
		hasher := fnv.New64a()
		_, _ = hasher.Write([]byte(token))
		h := hasher.Sum64()
		for bit := 0; bit < 64; bit++ {
			if h&(uint64(1)<<bit) != 0 {
				bitWeights[bit]++
			} else {
				bitWeights[bit]--
			}
		}
	}

	var fingerprint uint64
	for bit := 0; bit < 64; bit++ {
		if bitWeights[bit] > 0 {
			fingerprint |= uint64(1) << bit
		}
	}
	return fingerprint
}

// ToSignedI64 remaps an unsigned fingerprint into the BIGINT value
// with the same bit pattern.
func ToSignedI64(value uint64) int64 {
	return int64(value)
}

// Fingerprint computes the stored fingerprint of a document body.
func Fingerprint(content string) int64 {
	return ToSignedI64(SimHash64(strings.Fields(content)))
}

// FingerprintStore is the storage surface of the duplicate detector.
type FingerprintStore interface {
	DoneDocumentContents(ctx context.Context, totalNodes, nodeIndex int, fn func(id int64, content string) error) error
	UpsertFingerprints(ctx context.Context, fingerprints map[int64]int64) error
}

// DetectDuplicates fingerprints every done document on this node's
// shard and merges the results.
func DetectDuplicates(ctx context.Context, store FingerprintStore, totalNodes, nodeIndex int) error {
	fingerprints := make(map[int64]int64)
	err := store.DoneDocumentContents(ctx, totalNodes, nodeIndex, func(id int64, content string) error {
		fingerprints[id] = Fingerprint(content)
		return nil
	})
	if err != nil {
		return err
	}
	if len(fingerprints) == 0 {
		return nil
	}

	if err := store.UpsertFingerprints(ctx, fingerprints); err != nil {
		return err
	}
	logger.Logger.Info("updated document fingerprints", "documents", len(fingerprints))
	return nil
}
