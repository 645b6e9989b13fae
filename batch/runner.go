package batch

import (
	"context"
	"strings"
	"time"

	"search-engine/logger"

	"golang.org/x/sync/errgroup"
)

// Claims stuck in_progress longer than this are assumed abandoned by a
// crashed worker and returned to the queue.
const staleClaimAge = 30 * time.Minute

// Job is one runnable batch stage.
type Job interface {
	Run(ctx context.Context) error
}

// RunnerStore is the storage surface of the batch runner.
type RunnerStore interface {
	FingerprintStore
	AuthorityStore
	RebuildResolvedEdges(ctx context.Context) error
	ReplaceTermStatistics(ctx context.Context) error
	RequeueStale(ctx context.Context, age time.Duration) (int64, error)
}

// IsCoordinator decides whether this node runs the global jobs. An
// explicit role wins; in auto mode the first node of the fleet (or a
// single-node deployment) coordinates.
func IsCoordinator(role string, totalNodes, nodeIndex int) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "coordinator":
		return true
	case "worker":
		return false
	default:
		return totalNodes == 1 || nodeIndex == 0
	}
}

// Runner drives the batch cycle on one node.
type Runner struct {
	store       RunnerStore
	newsFetcher Job
	lexicon     Job
	interval    time.Duration
	totalNodes  int
	nodeIndex   int
	coordinator bool
}

func NewRunner(store RunnerStore, newsFetcher, lexicon Job, interval time.Duration, role string, totalNodes, nodeIndex int) *Runner {
	if totalNodes < 1 {
		totalNodes = 1
	}
	return &Runner{
		store:       store,
		newsFetcher: newsFetcher,
		lexicon:     lexicon,
		interval:    interval,
		totalNodes:  totalNodes,
		nodeIndex:   nodeIndex,
		coordinator: IsCoordinator(role, totalNodes, nodeIndex),
	}
}

// RunOnce executes one batch cycle: sharded jobs on every node, global
// jobs on the coordinator only.
func (r *Runner) RunOnce(ctx context.Context) error {
	if err := r.newsFetcher.Run(ctx); err != nil {
		return err
	}
	if err := DetectDuplicates(ctx, r.store, r.totalNodes, r.nodeIndex); err != nil {
		return err
	}

	if !r.coordinator {
		logger.Logger.Info("skipping global jobs on worker",
			"node_index", r.nodeIndex, "total_nodes", r.totalNodes)
		return nil
	}

	requeued, err := r.store.RequeueStale(ctx, staleClaimAge)
	if err != nil {
		return err
	}
	if requeued > 0 {
		logger.Logger.Info("requeued stale claims", "count", requeued)
	}

	if err := r.store.RebuildResolvedEdges(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return RunPageRank(gctx, r.store) })
	g.Go(func() error { return r.store.ReplaceTermStatistics(gctx) })
	g.Go(func() error { return r.lexicon.Run(gctx) })
	return g.Wait()
}

// Run loops RunOnce forever: after a clean cycle it sleeps out the
// remainder of the interval, after a failed one it retries in 15
// seconds.
func (r *Runner) Run(ctx context.Context) error {
	logger.Logger.Info("starting batch runner",
		"interval", r.interval, "coordinator", r.coordinator,
		"total_nodes", r.totalNodes, "node_index", r.nodeIndex)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		started := time.Now()
		if err := r.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Logger.Error("batch cycle failed", "error", err)
			if !sleepInterruptible(ctx, 15*time.Second) {
				return ctx.Err()
			}
			continue
		}

		elapsed := time.Since(started)
		sleepFor := r.interval - elapsed
		if sleepFor < time.Second {
			sleepFor = time.Second
		}
		logger.Logger.Info("batch cycle complete", "elapsed", elapsed, "sleep", sleepFor)
		if !sleepInterruptible(ctx, sleepFor) {
			return ctx.Err()
		}
	}
}

func sleepInterruptible(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
