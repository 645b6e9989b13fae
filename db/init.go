package db

import (
	"context"
	"fmt"

	"search-engine/config"
	"search-engine/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Init connects a pgx pool and verifies the connection.
func Init(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Logger.Info("Connected to database pool", "host", cfg.Host, "db", cfg.Name)
	return pool, nil
}
