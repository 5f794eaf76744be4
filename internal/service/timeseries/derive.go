package timeseries

import (
	"fmt"
	"time"

	"github.com/ougirez/covtrack/internal/domain"
	"github.com/ougirez/covtrack/internal/domain/dto"
	"github.com/ougirez/covtrack/internal/pkg/constants"
)

// FactEmitter receives the facts of one location, in date order.
type FactEmitter func(key string, facts []*domain.Fact) error

// Locations returns the location dimension rows for the confirmed key space,
// in key order.
func Locations(set *dto.TableSet) []*domain.Location {
	keys := set.Confirmed.Keys()
	locations := make([]*domain.Location, 0, len(keys))
	for _, key := range keys {
		row := set.Confirmed.Rows[key]
		locations = append(locations, &domain.Location{
			SubNational: row[dto.ColSubNational],
			Country:     row[dto.ColCountry],
			Lat:         ParseCoordinate(row[dto.ColLat]),
			Lon:         ParseCoordinate(row[dto.ColLon]),
		})
	}
	return locations
}

// Derive walks every confirmed location in key order and emits one fact per
// date column. lookup maps location keys to persisted location ids; a key
// missing from it fails the whole derivation before anything is emitted.
func Derive(set *dto.TableSet, lookup map[string]int64, emit FactEmitter) error {
	dates, err := headerDates(set.Confirmed)
	if err != nil {
		return err
	}

	keys := set.Confirmed.Keys()
	for _, key := range keys {
		if _, ok := lookup[key]; !ok {
			return fmt.Errorf("%w: location key '%s' not found in location lookup", constants.ErrIntegrity, key)
		}
	}

	for _, key := range keys {
		if err := emit(key, deriveLocation(set, key, lookup[key], dates)); err != nil {
			return err
		}
	}

	return nil
}

type totals struct {
	confirmed int64
	deaths    int64
	recovered int64
}

func deriveLocation(set *dto.TableSet, key string, locationID int64, dates []time.Time) []*domain.Fact {
	facts := make([]*domain.Fact, 0, len(dates))

	var last totals
	for i, date := range dates {
		col := dto.MetadataColumns + i
		cur := totals{
			confirmed: count(set.Confirmed, key, col),
			deaths:    count(set.Deaths, key, col),
			recovered: count(set.Recovered, key, col),
		}

		facts = append(facts, &domain.Fact{
			LocationID:      locationID,
			Date:            date,
			ConfirmedTotal:  cur.confirmed,
			DeathsTotal:     cur.deaths,
			RecoveredTotal:  cur.recovered,
			ConfirmedNew:    cur.confirmed - last.confirmed,
			DeathsNew:       cur.deaths - last.deaths,
			RecoveredNew:    cur.recovered - last.recovered,
			ConfirmedActive: cur.confirmed - (cur.deaths + cur.recovered),
		})

		last = cur
	}

	return facts
}

// count is zero when the table, the key or the cell is missing or not numeric.
func count(table *dto.TimeSeriesTable, key string, col int) int64 {
	cell, ok := table.Cell(key, col)
	if !ok {
		return 0
	}
	return ParseCount(cell)
}

func headerDates(table *dto.TimeSeriesTable) ([]time.Time, error) {
	labels := table.Dates()
	dates := make([]time.Time, 0, len(labels))
	for i, label := range labels {
		date, err := time.Parse(DateLayout, label)
		if err != nil {
			return nil, fmt.Errorf("%w: column %d of '%s' is not a date: '%s'",
				constants.ErrFormat, dto.MetadataColumns+i, table.Name, label)
		}
		dates = append(dates, date)
	}
	return dates, nil
}
