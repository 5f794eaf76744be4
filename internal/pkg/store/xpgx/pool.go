package xpgx

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ougirez/covtrack/internal/pkg/logger"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pool runs squirrel queries against a connection pool or a transaction.
type Pool interface {
	Execx(ctx context.Context, query squirrel.Sqlizer) (pgconn.CommandTag, error)
	Queryx(ctx context.Context, query squirrel.Sqlizer) (pgx.Rows, error)
	// BeginFunc runs fn inside a transaction (a savepoint when already in one).
	BeginFunc(ctx context.Context, fn func(tx Pool) error) error
}

type pool struct {
	q Querier
}

func NewPool(q Querier) Pool {
	return &pool{q: q}
}

func (p *pool) Execx(ctx context.Context, query squirrel.Sqlizer) (pgconn.CommandTag, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("ToSql: %w", err)
	}
	return p.q.Exec(ctx, sql, args...)
}

func (p *pool) Queryx(ctx context.Context, query squirrel.Sqlizer) (pgx.Rows, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ToSql: %w", err)
	}
	return p.q.Query(ctx, sql, args...)
}

func (p *pool) BeginFunc(ctx context.Context, fn func(tx Pool) error) error {
	return pgx.BeginFunc(ctx, p.q, func(tx pgx.Tx) error {
		return fn(&pool{q: tx})
	})
}

// Connect opens a pgx pool for dsn and pings it, retrying with exponential
// backoff up to retries times while the server is unavailable.
func Connect(ctx context.Context, dsn string, retries uint64) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	err = backoff.RetryNotify(
		func() error {
			return p.Ping(ctx)
		},
		backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx),
		func(err error, next time.Duration) {
			logger.Warnf(ctx, "db ping failed, retrying in %s: %s", next, err)
		},
	)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("ping %s@%s: %w", cfg.ConnConfig.User, cfg.ConnConfig.Host, err)
	}

	return p, nil
}
