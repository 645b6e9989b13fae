// Command seed enqueues crawl URLs or registers news feeds so a fresh
// deployment has something to work on.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"search-engine/config"
	"search-engine/db"
	"search-engine/logger"
	"search-engine/urlutil"
)

func main() {
	feed := flag.Bool("feed", false, "register the URLs as news feeds instead of enqueuing them for crawling")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-feed] url [url ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	urls := flag.Args()
	if len(urls) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.Init(ctx, cfg.Database)
	if err != nil {
		logger.Logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	failed := false
	for _, rawURL := range urls {
		if *feed {
			if err := store.RegisterFeed(ctx, rawURL, urlutil.Origin(rawURL), rawURL); err != nil {
				logger.Logger.Error("failed to register feed", "url", rawURL, "error", err)
				failed = true
				continue
			}
			logger.Logger.Info("feed registered", "url", rawURL)
			continue
		}

		if err := store.Enqueue(ctx, rawURL); err != nil {
			logger.Logger.Error("failed to enqueue url", "url", rawURL, "error", err)
			failed = true
			continue
		}
		normalized, err := urlutil.Normalize(rawURL)
		if err != nil {
			normalized = rawURL
		}
		logger.Logger.Info("seed url queued", "url", normalized)
	}

	if failed {
		os.Exit(1)
	}
}
