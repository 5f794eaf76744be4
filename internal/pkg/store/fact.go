package store

import (
	"context"
	"fmt"

	"github.com/ougirez/covtrack/internal/domain"
	"github.com/ougirez/covtrack/internal/pkg/logger"
)

// factsBatchSize keeps one insert well below the postgres bind parameter limit.
const factsBatchSize = 1000

var factColumns = []string{
	"location_id",
	"date",
	"confirmed_total",
	"deaths_total",
	"recovered_total",
	"confirmed_new",
	"deaths_new",
	"recovered_new",
	"confirmed_active",
}

func upsertFactsQuery(facts []*domain.Fact) sqlizer {
	query := builder().Insert(tableFacts).
		Columns(factColumns...)

	for _, f := range facts {
		query = query.Values(
			f.LocationID,
			f.Date,
			f.ConfirmedTotal,
			f.DeathsTotal,
			f.RecoveredTotal,
			f.ConfirmedNew,
			f.DeathsNew,
			f.RecoveredNew,
			f.ConfirmedActive,
		)
	}

	return query.Suffix(`
on conflict (location_id, date)
do update
set
	confirmed_total = excluded.confirmed_total,
	deaths_total = excluded.deaths_total,
	recovered_total = excluded.recovered_total,
	confirmed_new = excluded.confirmed_new,
	deaths_new = excluded.deaths_new,
	recovered_new = excluded.recovered_new,
	confirmed_active = excluded.confirmed_active`)
}

// UpsertFacts inserts the facts, overwriting every metric of an existing
// (location_id, date) row.
func (s *store) UpsertFacts(ctx context.Context, facts []*domain.Fact) error {
	for start := 0; start < len(facts); start += factsBatchSize {
		end := start + factsBatchSize
		if end > len(facts) {
			end = len(facts)
		}

		if _, err := s.pool.Execx(ctx, upsertFactsQuery(facts[start:end])); err != nil {
			logger.Error(ctx, err.Error())
			return wrapErr(fmt.Errorf("upsertFacts: %w", err))
		}
	}

	return nil
}
