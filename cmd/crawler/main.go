package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"search-engine/config"
	"search-engine/crawler"
	"search-engine/db"
	"search-engine/logger"
	"search-engine/ratelimit"
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
	fetcher := crawler.NewFetcher(cfg.Crawler.UserAgent, cfg.Crawler.RequestTimeout)
	limiter := ratelimit.NewDomainLimiter(cfg.Crawler.RequestsPerSecond)
	worker := crawler.NewWorker(store, fetcher, limiter, cfg.Crawler.Concurrency, cfg.Crawler.QueueBatchSize)

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Logger.Error("crawler exited with error", "error", err)
		os.Exit(1)
	}

	logger.Logger.Info("crawler exited")
}
