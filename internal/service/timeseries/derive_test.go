package timeseries

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ougirez/covtrack/internal/domain"
	"github.com/ougirez/covtrack/internal/domain/dto"
	"github.com/ougirez/covtrack/internal/pkg/constants"
)

func date(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func lookupFor(set *dto.TableSet) map[string]int64 {
	lookup := make(map[string]int64)
	for i, key := range set.Confirmed.Keys() {
		lookup[key] = int64(i + 1)
	}
	return lookup
}

func deriveAll(t *testing.T, set *dto.TableSet, lookup map[string]int64) map[string][]*domain.Fact {
	t.Helper()

	got := make(map[string][]*domain.Fact)
	err := Derive(set, lookup, func(key string, facts []*domain.Fact) error {
		got[key] = facts
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestDerive_Scenario(t *testing.T) {
	ctx := context.Background()
	header := "Province/State,Country/Region,Lat,Long,1/22/20,1/23/20\n"

	confirmed, err := Parse(ctx, strings.NewReader(header+",A,0,0,5,8\n"), "confirmed", DefaultParseOptions(dto.FeedConfirmed))
	require.NoError(t, err)
	deaths, err := Parse(ctx, strings.NewReader(header+",A,0,0,1,2\n"), "deaths", DefaultParseOptions(dto.FeedDeaths))
	require.NoError(t, err)
	recovered, err := Parse(ctx, strings.NewReader(header), "recovered", DefaultParseOptions(dto.FeedRecovered))
	require.NoError(t, err)

	set, err := Reconcile(ctx, &dto.TableSet{Confirmed: confirmed, Deaths: deaths, Recovered: recovered}, nil)
	require.NoError(t, err)

	got := deriveAll(t, set, map[string]int64{"A": 42})

	assert.Equal(t, []*domain.Fact{
		{
			LocationID:      42,
			Date:            date("2020-01-22"),
			ConfirmedTotal:  5,
			DeathsTotal:     1,
			RecoveredTotal:  0,
			ConfirmedNew:    5,
			DeathsNew:       1,
			RecoveredNew:    0,
			ConfirmedActive: 4,
		},
		{
			LocationID:      42,
			Date:            date("2020-01-23"),
			ConfirmedTotal:  8,
			DeathsTotal:     2,
			RecoveredTotal:  0,
			ConfirmedNew:    3,
			DeathsNew:       1,
			RecoveredNew:    0,
			ConfirmedActive: 6,
		},
	}, got["A"])
}

func TestDerive_Testdata(t *testing.T) {
	set, err := Reconcile(context.Background(), loadTestSet(t), DefaultPolicies())
	require.NoError(t, err)

	lookup := lookupFor(set)
	got := deriveAll(t, set, lookup)

	require.Len(t, got, 5)

	canada := got["Canada"]
	require.Len(t, canada, 3)
	assert.Equal(t, lookup["Canada"], canada[0].LocationID)

	// confirmed drops from 35 to 30 on the last day: the delta goes negative
	assert.Equal(t, []int64{15, 35, 30}, field(canada, func(f *domain.Fact) int64 { return f.ConfirmedTotal }))
	assert.Equal(t, []int64{15, 20, -5}, field(canada, func(f *domain.Fact) int64 { return f.ConfirmedNew }))
	assert.Equal(t, []int64{1, 3, 4}, field(canada, func(f *domain.Fact) int64 { return f.DeathsTotal }))
	assert.Equal(t, []int64{0, 1, 2}, field(canada, func(f *domain.Fact) int64 { return f.RecoveredTotal }))
	assert.Equal(t, []int64{14, 31, 24}, field(canada, func(f *domain.Fact) int64 { return f.ConfirmedActive }))

	washington := got["Washington US"]
	assert.Equal(t, []int64{0, 0, 1}, field(washington, func(f *domain.Fact) int64 { return f.RecoveredTotal }))
	assert.Equal(t, []int64{3, 3, 3}, field(washington, func(f *domain.Fact) int64 { return f.ConfirmedActive }))

	// B has a blank last cell in confirmed and no deaths or recovered rows
	b := got["B"]
	assert.Equal(t, []int64{2, 2, 0}, field(b, func(f *domain.Fact) int64 { return f.ConfirmedTotal }))
	assert.Equal(t, []int64{2, 0, -2}, field(b, func(f *domain.Fact) int64 { return f.ConfirmedNew }))
	for _, f := range b {
		assert.Zero(t, f.DeathsTotal)
		assert.Zero(t, f.DeathsNew)
		assert.Zero(t, f.RecoveredTotal)
		assert.Zero(t, f.RecoveredNew)
	}

	// Z only exists in deaths and is never derived
	assert.NotContains(t, got, "Z")
}

func TestDerive_NegativeActive(t *testing.T) {
	set := &dto.TableSet{
		Confirmed: newTable(testHeader, []string{"", "A", "0", "0", "1", "1"}),
		Deaths:    newTable(testHeader, []string{"", "A", "0", "0", "1", "1"}),
		Recovered: newTable(testHeader, []string{"", "A", "0", "0", "0", "3"}),
	}

	got := deriveAll(t, set, map[string]int64{"A": 1})

	assert.Equal(t, int64(0), got["A"][0].ConfirmedActive)
	assert.Equal(t, int64(-3), got["A"][1].ConfirmedActive)
}

func TestDerive_Order(t *testing.T) {
	set := &dto.TableSet{
		Confirmed: newTable(testHeader,
			[]string{"", "C", "0", "0", "1", "1"},
			[]string{"", "A", "0", "0", "1", "1"},
			[]string{"X", "B", "0", "0", "1", "1"},
		),
	}

	var keys []string
	err := Derive(set, lookupFor(set), func(key string, _ []*domain.Fact) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "X B"}, keys)
}

func TestDerive_MissingLocation(t *testing.T) {
	set := &dto.TableSet{
		Confirmed: newTable(testHeader,
			[]string{"", "A", "0", "0", "1", "1"},
			[]string{"", "B", "0", "0", "1", "1"},
		),
	}

	emitted := 0
	err := Derive(set, map[string]int64{"A": 1}, func(string, []*domain.Fact) error {
		emitted++
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, constants.ErrIntegrity)
	assert.Contains(t, err.Error(), "'B'")
	assert.Zero(t, emitted)
}

func TestDerive_Idempotent(t *testing.T) {
	set, err := Reconcile(context.Background(), loadTestSet(t), DefaultPolicies())
	require.NoError(t, err)

	lookup := lookupFor(set)
	assert.Equal(t, deriveAll(t, set, lookup), deriveAll(t, set, lookup))
}

func TestLocations(t *testing.T) {
	set, err := Reconcile(context.Background(), loadTestSet(t), DefaultPolicies())
	require.NoError(t, err)

	locations := Locations(set)
	require.Len(t, locations, 5)

	keys := make([]string, 0, len(locations))
	for _, l := range locations {
		keys = append(keys, l.Key())
	}
	assert.Equal(t, set.Confirmed.Keys(), keys)

	canada := locations[2]
	assert.Equal(t, "", canada.SubNational)
	assert.Equal(t, "Canada", canada.Country)
	require.NotNil(t, canada.Lat)
	assert.Zero(t, *canada.Lat)

	a := locations[0]
	require.NotNil(t, a.Lon)
	assert.InDelta(t, 2.5, *a.Lon, 1e-9)
}

func field(facts []*domain.Fact, get func(*domain.Fact) int64) []int64 {
	out := make([]int64, 0, len(facts))
	for _, f := range facts {
		out = append(out, get(f))
	}
	return out
}
