package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultPoolMaxConnLifetime = time.Hour
	defaultPoolHealthCheck     = 30 * time.Second
)

// Pool is the system of record for user accounts. It is safe for concurrent
// use; every session resolution checks out and returns one connection.
type Pool struct {
	*pgxpool.Pool
}

func NewPool(ctx context.Context, connString string) (*Pool, error) {
	if connString == "" {
		return nil, errors.New("database url is not configured")
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}

	cfg.MaxConnLifetime = defaultPoolMaxConnLifetime
	cfg.HealthCheckPeriod = defaultPoolHealthCheck
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Pool{Pool: pool}, nil
}

func (p *Pool) Ping(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return errors.New("nil db pool")
	}
	return p.Pool.Ping(ctx)
}

func (p *Pool) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
