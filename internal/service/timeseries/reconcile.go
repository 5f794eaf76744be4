package timeseries

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ougirez/covtrack/internal/domain"
	"github.com/ougirez/covtrack/internal/domain/dto"
	"github.com/ougirez/covtrack/internal/pkg/constants"
	"github.com/ougirez/covtrack/internal/pkg/logger"
)

// AggregationPolicy tells the reconciler what to do with a country's
// sub-national rows.
type AggregationPolicy string

const (
	PolicyNone           AggregationPolicy = "none"
	PolicySumSubNational AggregationPolicy = "sum_sub_national"
)

// Policies maps a country name to its aggregation policy.
type Policies map[string]AggregationPolicy

func DefaultPolicies() Policies {
	return Policies{"Canada": PolicySumSubNational}
}

func ParsePolicy(s string) (AggregationPolicy, error) {
	switch p := AggregationPolicy(s); p {
	case PolicyNone, PolicySumSubNational:
		return p, nil
	}
	return "", fmt.Errorf("unknown aggregation policy '%s'", s)
}

// Countries returns the countries whose rows get summed, sorted.
func (p Policies) Countries() []string {
	countries := make([]string, 0, len(p))
	for country, policy := range p {
		if policy == PolicySumSubNational {
			countries = append(countries, country)
		}
	}
	sort.Strings(countries)
	return countries
}

// Reconcile validates the shape of the three tables and applies the
// aggregation policies to confirmed and deaths. Recovered is left as is.
// The input set is not modified.
func Reconcile(ctx context.Context, set *dto.TableSet, policies Policies) (*dto.TableSet, error) {
	if set == nil || set.Confirmed == nil {
		return nil, fmt.Errorf("%w: confirmed table is required", constants.ErrFormat)
	}

	for _, table := range set.Tables() {
		if err := validateShape(table); err != nil {
			return nil, err
		}
	}

	out := &dto.TableSet{
		Confirmed: set.Confirmed,
		Deaths:    set.Deaths,
		Recovered: set.Recovered,
	}

	for _, country := range policies.Countries() {
		out.Confirmed = Aggregate(out.Confirmed, country)
		if out.Deaths != nil {
			out.Deaths = Aggregate(out.Deaths, country)
		}
		logger.Infof(ctx, "aggregated sub-national rows of %s", country)
	}

	reportDivergence(ctx, out)

	return out, nil
}

// Aggregate returns a copy of table where every row of country with a
// sub-national name is replaced by a single country-level row holding the
// per-date sums. Coordinates of the synthesized row are 0. The table is
// returned unchanged when country has no sub-national rows.
func Aggregate(table *dto.TimeSeriesTable, country string) *dto.TimeSeriesTable {
	out := table.Clone()
	width := len(table.Header)
	sums := make([]decimal.Decimal, width)

	found := false
	for key, row := range table.Rows {
		if len(row) < dto.MetadataColumns || row[dto.ColCountry] != country || row[dto.ColSubNational] == "" {
			continue
		}
		found = true
		for col := dto.MetadataColumns; col < width && col < len(row); col++ {
			if d, ok := parseDecimal(row[col]); ok {
				sums[col] = sums[col].Add(d)
			}
		}
		delete(out.Rows, key)
	}
	if !found {
		return out
	}

	row := make([]string, width)
	row[dto.ColSubNational] = ""
	row[dto.ColCountry] = country
	row[dto.ColLat] = "0"
	row[dto.ColLon] = "0"
	for col := dto.MetadataColumns; col < width; col++ {
		row[col] = sums[col].String()
	}
	out.Rows[domain.LocationKey("", country)] = row

	return out
}

func validateShape(table *dto.TimeSeriesTable) error {
	if table == nil {
		return nil
	}
	cols := len(table.Header)
	for _, key := range table.Keys() {
		if n := len(table.Rows[key]); n != cols {
			return fmt.Errorf("%w: different number of columns on row '%s' of '%s': got %d, header has %d",
				constants.ErrFormat, key, table.Name, n, cols)
		}
	}
	return nil
}

// reportDivergence logs differences between the feeds that derivation
// tolerates: keys missing from confirmed and header length mismatches.
func reportDivergence(ctx context.Context, set *dto.TableSet) {
	for _, table := range []*dto.TimeSeriesTable{set.Deaths, set.Recovered} {
		if table == nil {
			continue
		}
		if len(table.Header) != len(set.Confirmed.Header) {
			logger.Warnf(ctx, "'%s' has %d columns, confirmed has %d",
				table.Name, len(table.Header), len(set.Confirmed.Header))
		}
		for _, key := range table.Keys() {
			if _, ok := set.Confirmed.Rows[key]; !ok {
				logger.Warnf(ctx, "location '%s' from '%s' not in confirmed, ignored", key, table.Name)
			}
		}
	}
}
