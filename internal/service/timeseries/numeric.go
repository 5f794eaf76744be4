package timeseries

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseCount turns a raw feed cell into a count. Blank and non-numeric cells
// count as zero; fractional values are truncated.
func ParseCount(cell string) int64 {
	d, ok := parseDecimal(cell)
	if !ok {
		return 0
	}
	return d.IntPart()
}

// ParseCoordinate parses a latitude/longitude cell, nil when blank or invalid.
func ParseCoordinate(cell string) *float64 {
	d, ok := parseDecimal(cell)
	if !ok {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func parseDecimal(cell string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
