package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ougirez/covtrack/internal/domain"
	"github.com/ougirez/covtrack/internal/pkg/logger"
)

var locationColumns = []string{"id", "sub_national", "country", "lat", "lon"}

func upsertLocationQuery(location *domain.Location) sqlizer {
	return builder().Insert(tableLocations).
		Columns(locationColumns[1:]...).
		Values(location.SubNational, location.Country, location.Lat, location.Lon).
		Suffix(`on conflict (sub_national, country) do nothing`)
}

func listLocationsQuery() sqlizer {
	return builder().Select(locationColumns...).
		From(tableLocations).
		OrderBy("country, sub_national")
}

// UpsertLocation inserts the location unless one with the same
// (sub_national, country) exists already.
func (s *store) UpsertLocation(ctx context.Context, location *domain.Location) error {
	if _, err := s.pool.Execx(ctx, upsertLocationQuery(location)); err != nil {
		logger.Errorf(ctx, "upsertLocation: %s", err.Error())
		return wrapErr(fmt.Errorf("upsertLocation, key-%s: %w", location.Key(), err))
	}

	return nil
}

func (s *store) ListLocations(ctx context.Context) ([]*domain.Location, error) {
	rows, err := s.pool.Queryx(ctx, listLocationsQuery())
	if err != nil {
		return nil, wrapErr(fmt.Errorf("listLocations: %w", err))
	}

	selected, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[domain.Location])
	if err != nil {
		return nil, wrapErr(fmt.Errorf("listLocations: %w", err))
	}

	return selected, nil
}
