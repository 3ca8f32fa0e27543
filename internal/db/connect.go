package db

import (
	"context"
	"fmt"
	"time"

	"task_webapp/internal/config"
	"task_webapp/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect creates the process-wide connection pool. The caller owns it and
// must Close it on shutdown.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolCfg.MaxConns = int32(cfg.PoolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connected", "max_conns", poolCfg.MaxConns)
	return pool, nil
}

// Postgres returns a GORM dialector that borrows connections from pool.
func Postgres(pool *pgxpool.Pool) gorm.Dialector {
	return postgres.New(postgres.Config{
		Conn: stdlib.OpenDBFromPool(pool),
	})
}

// Open opens the ORM on top of dialector. Timestamps are produced in UTC
// with microsecond precision so they round-trip through timestamptz.
func Open(dialector gorm.Dialector, debug bool) (*gorm.DB, error) {
	level := gormlogger.Silent
	if debug {
		level = gormlogger.Info
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(level),
		NowFunc: Now,
	})
	if err != nil {
		return nil, fmt.Errorf("open orm: %w", err)
	}
	return gdb, nil
}

// Now is the ORM clock.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
