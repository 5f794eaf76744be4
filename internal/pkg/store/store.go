package store

import (
	"context"

	"github.com/ougirez/covtrack/internal/domain"
	"github.com/ougirez/covtrack/internal/pkg/store/xpgx"
)

type Pool = xpgx.Pool

type Store interface {
	// InTx runs fn against a store bound to one transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	UpsertLocation(ctx context.Context, location *domain.Location) error
	ListLocations(ctx context.Context) ([]*domain.Location, error)
	UpsertFacts(ctx context.Context, facts []*domain.Fact) error
}

type store struct {
	pool Pool
}

func NewStore(pool Pool) Store {
	return &store{pool}
}

func (s *store) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	err := s.pool.BeginFunc(ctx, func(tx Pool) error {
		return fn(ctx, &store{pool: tx})
	})
	return wrapErr(err)
}
