package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options tunes the connection pool
type Options struct {
	MaxConnections    int
	ConnectionTimeout time.Duration
}

// Connect opens a pgx pool for databaseURL and verifies it with a ping
func Connect(ctx context.Context, databaseURL string, opts Options) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	applyOptions(cfg, opts)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx := ctx
	if opts.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.ConnectionTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func applyOptions(cfg *pgxpool.Config, opts Options) {
	if opts.MaxConnections > 0 {
		cfg.MaxConns = int32(opts.MaxConnections)
	}
	if opts.ConnectionTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ConnectionTimeout
	}
}
