package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"search-engine/batch"
	"search-engine/config"
	"search-engine/db"
	"search-engine/logger"
	"search-engine/news"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Init(ctx, cfg.Database)
	if err != nil {
		logger.Logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	newsFetcher := news.NewFetcher(store, cfg.Batch.TotalNodes, cfg.Batch.NodeIndex)
	lexicon := batch.NewLexiconBuilder(store, cfg.Spellcheck.MetaPath, cfg.Spellcheck.MetaMaxWords)
	runner := batch.NewRunner(store, newsFetcher, lexicon,
		cfg.Batch.Interval, cfg.Batch.Role, cfg.Batch.TotalNodes, cfg.Batch.NodeIndex)

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Logger.Error("batch runner exited with error", "error", err)
		os.Exit(1)
	}

	logger.Logger.Info("batch runner exited")
}
