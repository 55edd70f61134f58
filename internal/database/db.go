// Package database owns the PostgreSQL pool shared by the identity and
// request datastores, and the schema migrations they depend on.
package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"ecoroute/internal/config"
)

// Pool defaults used when the configuration leaves a value at zero.
const (
	DefaultMaxOpenConns    = 10
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 30 * time.Minute
	DefaultConnMaxIdleTime = 5 * time.Minute
	DefaultPingTimeout     = 5 * time.Second
)

// DB is the pgx-backed pool.
type DB struct {
	*sql.DB
	url         string
	pingTimeout time.Duration
}

// poolSettings resolves cfg against the defaults. Idle connections never
// exceed open ones.
func poolSettings(cfg config.DatabaseConfig) config.DatabaseConfig {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = DefaultMaxOpenConns
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime <= 0 {
		cfg.ConnMaxIdleTime = DefaultConnMaxIdleTime
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = DefaultPingTimeout
	}
	return cfg
}

// Open connects to cfg.URL, sizes the pool and pings once.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	cfg = poolSettings(cfg)

	sqlDB, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, eris.Wrap(err, "database: open")
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	db := &DB{DB: sqlDB, url: cfg.URL, pingTimeout: cfg.PingTimeout}
	if err := db.Health(ctx); err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			zap.L().Warn("database: close after ping failure", zap.Error(closeErr))
		}
		return nil, eris.Wrap(err, "database: ping")
	}

	zap.L().Debug("database pool ready",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
	)
	return db, nil
}

// Health pings the pool, bounded by the ping timeout when ctx has no deadline.
func (db *DB) Health(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		timeout := db.pingTimeout
		if timeout <= 0 {
			timeout = DefaultPingTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := db.PingContext(ctx); err != nil {
		return eris.Wrap(err, "database: health check")
	}
	return nil
}
