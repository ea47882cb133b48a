// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IU Calendar Contributors

// Package store provides PostgreSQL connectivity and schema migrations.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// PoolConfig configures NewPool.
type PoolConfig struct {
	URL      string
	MaxConns int32
	// ConnectAttempts bounds the start-up ping; values below 1 mean a single attempt.
	ConnectAttempts uint64
	// ConnectBackoff is the first retry delay; later delays double.
	ConnectBackoff time.Duration
}

// DefaultPoolConfig returns the start-up defaults for url.
func DefaultPoolConfig(url string) PoolConfig {
	return PoolConfig{
		URL:             url,
		MaxConns:        10,
		ConnectAttempts: 5,
		ConnectBackoff:  250 * time.Millisecond,
	}
}

// NewPool opens a pgx pool and pings it, retrying with exponential backoff
// while the database comes up. This is the only retried operation.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "iucal"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := cfg.ConnectBackoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	retries := uint64(0)
	if cfg.ConnectAttempts > 1 {
		retries = cfg.ConnectAttempts - 1
	}
	b := retry.WithMaxRetries(retries, retry.NewExponential(backoff))

	err = retry.Do(ctx, b, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", retries+1).
			Wrap(err)
	}
	return pool, nil
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck adapts a Pinger to a readiness probe with a bounded timeout.
func ReadinessCheck(p Pinger, timeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return oops.Code("DB_NOT_READY").Wrap(err)
		}
		return nil
	}
}
