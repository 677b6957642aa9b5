package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	*pgxpool.Pool
}

// PoolConfig tunes the connection pool. Zero values keep the pgxpool defaults.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxConns: 25, MinConns: 5, MaxConnLifetime: time.Hour}
}

func NewPostgreSQLDB(ctx context.Context, dsn string, pool PoolConfig) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}

	if pool.MaxConns > 0 {
		config.MaxConns = pool.MaxConns
	}
	if pool.MinConns > 0 {
		config.MinConns = pool.MinConns
	}
	if pool.MaxConnLifetime > 0 {
		config.MaxConnLifetime = pool.MaxConnLifetime
	}

	p, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: p}, nil
}

func (db *DB) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return db.Pool.Begin(ctx)
}

// Querier is satisfied by both the pool and a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
