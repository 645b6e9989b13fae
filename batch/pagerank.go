package batch

import (
	"context"

	"search-engine/db"
	"search-engine/logger"
)

const (
	pageRankDamping    = 0.85
	pageRankIterations = 20
)

// ComputePageRank runs the classic power iteration over the resolved
// link graph. Dangling nodes spread nothing; edges whose endpoints are
// unknown are ignored. Also returns each node's indegree.
func ComputePageRank(nodes []int64, edges [][2]int64) (map[int64]float64, map[int64]int) {
	n := len(nodes)
	ranks := make(map[int64]float64, n)
	inlinks := make(map[int64]int, n)
	if n == 0 {
		return ranks, inlinks
	}

	known := make(map[int64]struct{}, n)
	for _, node := range nodes {
		known[node] = struct{}{}
	}

	outgoing := make(map[int64][]int64)
	for _, edge := range edges {
		source, target := edge[0], edge[1]
		if _, ok := known[source]; !ok {
			continue
		}
		if _, ok := known[target]; !ok {
			continue
		}
		outgoing[source] = append(outgoing[source], target)
		inlinks[target]++
	}

	for _, node := range nodes {
		ranks[node] = 1.0 / float64(n)
	}
	base := (1.0 - pageRankDamping) / float64(n)

	for i := 0; i < pageRankIterations; i++ {
		next := make(map[int64]float64, n)
		for _, node := range nodes {
			next[node] = base
		}
		for _, node := range nodes {
			targets := outgoing[node]
			if len(targets) == 0 {
				continue
			}
			share := pageRankDamping * ranks[node] / float64(len(targets))
			for _, target := range targets {
				next[target] += share
			}
		}
		ranks = next
	}
	return ranks, inlinks
}

// AuthorityStore is the storage surface of the PageRank job.
type AuthorityStore interface {
	DoneDocumentIDs(ctx context.Context) ([]int64, error)
	ResolvedEdges(ctx context.Context) ([][2]int64, error)
	UpsertAuthorityBulk(ctx context.Context, authorities []db.Authority) error
}

// RunPageRank recomputes document authority from the current link
// graph and merges it into the store.
func RunPageRank(ctx context.Context, store AuthorityStore) error {
	nodes, err := store.DoneDocumentIDs(ctx)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}

	edges, err := store.ResolvedEdges(ctx)
	if err != nil {
		return err
	}

	ranks, inlinks := ComputePageRank(nodes, edges)
	authorities := make([]db.Authority, 0, len(nodes))
	for _, node := range nodes {
		authorities = append(authorities, db.Authority{
			DocID:       node,
			PageRank:    ranks[node],
			InlinkCount: inlinks[node],
		})
	}

	if err := store.UpsertAuthorityBulk(ctx, authorities); err != nil {
		return err
	}
	logger.Logger.Info("updated document authority", "documents", len(authorities), "edges", len(edges))
	return nil
}
