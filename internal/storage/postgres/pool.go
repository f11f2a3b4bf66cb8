// Package postgres provides Postgres-backed persistence implementations.
//
// Schema:
//
//	CREATE TABLE providers (
//		id UUID PRIMARY KEY,
//		name TEXT NOT NULL,
//		type TEXT NOT NULL,
//		is_active BOOLEAN NOT NULL,
//		priority INT NOT NULL,
//		capabilities TEXT[] NOT NULL,
//		config JSONB,
//		limits JSONB,
//		created_at TIMESTAMPTZ NOT NULL,
//		updated_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE operation_mappings (
//		operation TEXT NOT NULL,
//		provider_id UUID NOT NULL REFERENCES providers(id),
//		is_enabled BOOLEAN NOT NULL,
//		priority INT NOT NULL,
//		config JSONB,
//		PRIMARY KEY (operation, provider_id)
//	);
//	CREATE TABLE usage_records (
//		id BIGSERIAL PRIMARY KEY,
//		provider_id UUID NOT NULL,
//		user_id TEXT,
//		operation TEXT NOT NULL,
//		tokens_used INT NOT NULL DEFAULT 0,
//		cost NUMERIC NOT NULL DEFAULT 0,
//		duration_ms BIGINT NOT NULL DEFAULT 0,
//		success BOOLEAN NOT NULL,
//		error_message TEXT,
//		created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE scrape_jobs (
//		id UUID PRIMARY KEY,
//		urls JSONB NOT NULL,
//		industry TEXT,
//		status TEXT NOT NULL,
//		created_at TIMESTAMPTZ NOT NULL,
//		completed_at TIMESTAMPTZ,
//		run_ref TEXT
//	);
//	CREATE TABLE scrape_results (
//		job_id UUID NOT NULL REFERENCES scrape_jobs(id),
//		position INT NOT NULL,
//		result JSONB NOT NULL,
//		PRIMARY KEY (job_id, position)
//	);
//	CREATE TABLE scrape_activity (
//		id BIGSERIAL PRIMARY KEY,
//		job_id UUID,
//		url TEXT NOT NULL,
//		success BOOLEAN NOT NULL,
//		error TEXT,
//		duration_ms BIGINT NOT NULL DEFAULT 0,
//		created_at TIMESTAMPTZ NOT NULL
//	);
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config controls the shared Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// execQuerier is the pool surface the stores use; pgxmock satisfies it in
// tests.
type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// NewPool builds a pgx pool from the config.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}
