package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/learnhub-backend/internal/config"
)

// NewPool creates a connection pool and pings it. listeners is the number
// of connections pinned by change streams; they are added on top of
// cfg.MaxConns so queries keep the configured headroom.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, listeners int) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg, listeners)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func poolConfig(cfg config.DatabaseConfig, listeners int) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}

	if listeners < 0 {
		listeners = 0
	}
	poolCfg.MaxConns = cfg.MaxConns + int32(listeners)
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	return poolCfg, nil
}
