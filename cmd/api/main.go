package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"search-engine/config"
	"search-engine/db"
	"search-engine/logger"
	"search-engine/rest"
	"search-engine/search"
	"search-engine/spellcheck"
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
	searchService := search.NewService(store)
	spellcheckService := spellcheck.NewService(store, cfg.Spellcheck.MetaPath)
	if err := spellcheckService.WarmMeta(ctx, cfg.Spellcheck.MetaMaxWords); err != nil {
		logger.Logger.Warn("failed to warm spellcheck meta", "error", err)
	}

	e := rest.NewRouter(searchService, spellcheckService)

	go func() {
		logger.Logger.Info("starting api server", "addr", cfg.HTTP.Addr)
		if err := e.Start(cfg.HTTP.Addr); err != nil && err != http.ErrServerClosed {
			logger.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Logger.Info("shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Logger.Info("api server exited")
}
