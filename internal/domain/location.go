package domain

import (
	"strings"
	"time"
)

// Location is a row of the location dimension. SubNational is empty for
// country-level rows; Lat/Lon are nil when unknown.
type Location struct {
	ID          int64    `db:"id"`
	SubNational string   `db:"sub_national"`
	Country     string   `db:"country"`
	Lat         *float64 `db:"lat"`
	Lon         *float64 `db:"lon"`
}

// Key returns the natural join key of the location: "<sub-national> <country>",
// collapsing to just the country when there is no sub-national name.
func (l *Location) Key() string {
	return LocationKey(l.SubNational, l.Country)
}

func LocationKey(subNational, country string) string {
	return strings.TrimSpace(subNational + " " + country)
}

// Fact is one (location, date) row of cumulative totals and the derived deltas.
type Fact struct {
	ID              int64     `db:"id"`
	LocationID      int64     `db:"location_id"`
	Date            time.Time `db:"date"`
	ConfirmedTotal  int64     `db:"confirmed_total"`
	DeathsTotal     int64     `db:"deaths_total"`
	RecoveredTotal  int64     `db:"recovered_total"`
	ConfirmedNew    int64     `db:"confirmed_new"`
	DeathsNew       int64     `db:"deaths_new"`
	RecoveredNew    int64     `db:"recovered_new"`
	ConfirmedActive int64     `db:"confirmed_active"`
}
