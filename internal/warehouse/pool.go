// Package warehouse implements the Postgres-backed raw, staging and
// analytics layers behind the pipeline's Warehouse contract.
package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/trenderhq/trender/internal/contract"
	"github.com/trenderhq/trender/schema"
)

// Postgres error codes that retrying cannot fix.
const (
	pgInvalidPassword = "28P01"
	pgInvalidAuth     = "28000"
	pgInvalidCatalog  = "3D000" // database does not exist
)

// Connect opens a pgx pool against the configured database, retrying
// transient connection failures with the shared backoff policy. Auth and
// missing-database errors fail immediately.
func Connect(ctx context.Context, cfg *contract.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.PoolMinConns > 0 {
		poolCfg.MinConns = cfg.PoolMinConns
	}
	if cfg.PoolMaxConns > 0 {
		poolCfg.MaxConns = cfg.PoolMaxConns
	}

	var pool *pgxpool.Pool
	op := func() error {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}

	err = contract.Retry(ctx, schema.RetryBaseDelay, schema.MaxAPIRetries, connectRetryable, op)
	if err != nil {
		return nil, fmt.Errorf("connect to warehouse: %w. Check that PostgreSQL is running and the connection string is correct", err)
	}

	logrus.WithFields(logrus.Fields{
		"min_conns": poolCfg.MinConns,
		"max_conns": poolCfg.MaxConns,
	}).Debug("Warehouse pool established")
	return pool, nil
}

// connectRetryable treats everything as transient except errors that no
// amount of retrying fixes: bad credentials or a missing database.
func connectRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgInvalidPassword, pgInvalidAuth, pgInvalidCatalog:
			return false
		}
	}
	return true
}
