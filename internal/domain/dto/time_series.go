package dto

import "sort"

// Feed names one of the three input time series.
type Feed string

const (
	FeedConfirmed Feed = "confirmed"
	FeedDeaths    Feed = "deaths"
	FeedRecovered Feed = "recovered"
)

// Positions of the fixed metadata columns; date columns start at MetadataColumns.
const (
	ColSubNational  = 0
	ColCountry      = 1
	ColLat          = 2
	ColLon          = 3
	MetadataColumns = 4
)

// TimeSeriesTable is one wide-format feed held in memory: a header of
// metadata labels followed by ISO dates, and one full field list per location key.
type TimeSeriesTable struct {
	Name   string
	Header []string
	Rows   map[string][]string
}

func NewTimeSeriesTable(name string, header []string) *TimeSeriesTable {
	return &TimeSeriesTable{
		Name:   name,
		Header: header,
		Rows:   make(map[string][]string),
	}
}

// Keys returns the location keys in lexicographic order.
func (t *TimeSeriesTable) Keys() []string {
	keys := make([]string, 0, len(t.Rows))
	for k := range t.Rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dates returns the date labels of the header.
func (t *TimeSeriesTable) Dates() []string {
	if len(t.Header) <= MetadataColumns {
		return nil
	}
	return t.Header[MetadataColumns:]
}

func (t *TimeSeriesTable) Row(key string) ([]string, bool) {
	if t == nil {
		return nil, false
	}
	row, ok := t.Rows[key]
	return row, ok
}

// Cell returns the raw value at (key, col). ok is false when the table, the key
// or the column is missing.
func (t *TimeSeriesTable) Cell(key string, col int) (string, bool) {
	row, ok := t.Row(key)
	if !ok || col < 0 || col >= len(row) {
		return "", false
	}
	return row[col], true
}

// Clone returns a table with its own row map. Row slices are shared; they are
// never written after parse.
func (t *TimeSeriesTable) Clone() *TimeSeriesTable {
	c := NewTimeSeriesTable(t.Name, t.Header)
	for k, row := range t.Rows {
		c.Rows[k] = row
	}
	return c
}

// TableSet is the three parsed feeds. Confirmed is authoritative for the key space.
type TableSet struct {
	Confirmed *TimeSeriesTable
	Deaths    *TimeSeriesTable
	Recovered *TimeSeriesTable
}

func (s *TableSet) Tables() []*TimeSeriesTable {
	return []*TimeSeriesTable{s.Confirmed, s.Deaths, s.Recovered}
}
