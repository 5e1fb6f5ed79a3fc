package persistence

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spounge-ai/sysaudit/internal/infra/config"
)

// NewConnectionPool creates a PostgreSQL pool for url using the pool and TLS
// settings of cfg, and verifies it with a ping.
func NewConnectionPool(ctx context.Context, url string, cfg config.PostgresConfig, mode string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db config: %w", err)
	}

	if mode == "production" && !cfg.TLS.Enabled {
		return nil, fmt.Errorf("database connection must use TLS in production mode")
	}
	if cfg.TLS.Enabled {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName: poolConfig.ConnConfig.Host,
			MinVersion: tls.VersionTLS12,
		}
	}

	if cfg.Connection.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Connection.MaxConns
	}
	if cfg.Connection.MinConns > 0 {
		poolConfig.MinConns = cfg.Connection.MinConns
	}
	if cfg.Connection.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.Connection.MaxConnIdleTime
	}
	if cfg.Connection.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.Connection.MaxConnLifetime
	}
	if cfg.Connection.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.Connection.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
