package timeseries

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ougirez/covtrack/internal/domain"
	"github.com/ougirez/covtrack/internal/domain/dto"
	"github.com/ougirez/covtrack/internal/pkg/constants"
	"github.com/ougirez/covtrack/internal/pkg/logger"
)

// DateLayout is the ISO form date header cells are rewritten to.
const DateLayout = "2006-01-02"

// minRecordFields guards against blank or truncated trailing lines: the four
// metadata fields plus at least one date.
const minRecordFields = dto.MetadataColumns + 1

const (
	// recoveredMarker is a country-aggregate pseudo province present in the
	// confirmed and deaths feeds of one region.
	recoveredMarker = "Recovered"
	countryUS       = "US"
)

type ParseOptions struct {
	// SkipRecoveredMarker drops rows whose sub-national name is "Recovered".
	SkipRecoveredMarker bool
	// SkipCounties drops county-level rows that would double count state rows.
	SkipCounties bool
	// NormalizeTerritories blanks a sub-national name equal to its country,
	// so territory rows land on the country key.
	NormalizeTerritories bool
}

// DefaultParseOptions returns the filtering rules for the country-level
// source layout of the given feed.
func DefaultParseOptions(feed dto.Feed) ParseOptions {
	return ParseOptions{
		SkipRecoveredMarker:  feed != dto.FeedRecovered,
		SkipCounties:         true,
		NormalizeTerritories: true,
	}
}

// ParseFile reads one wide-format feed from path.
func ParseFile(ctx context.Context, path string, opts ParseOptions) (*dto.TimeSeriesTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: can't open '%s': %w", constants.ErrIO, path, err)
	}
	defer f.Close()

	return Parse(ctx, f, path, opts)
}

// Parse reads a wide-format feed from r. name identifies the source in errors.
func Parse(ctx context.Context, r io.Reader, name string, opts ParseOptions) (*dto.TimeSeriesTable, error) {
	cr := csv.NewReader(stripUTF8BOM(bufio.NewReader(r)))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header in '%s'", constants.ErrFormat, name)
		}
		return nil, readErr(name, err)
	}
	if len(header) < dto.MetadataColumns {
		return nil, fmt.Errorf("%w: header of '%s' has %d columns, want at least %d",
			constants.ErrFormat, name, len(header), dto.MetadataColumns)
	}

	for i, cell := range header {
		if !startsWithDigit(cell) {
			continue
		}
		date, err := NormalizeDate(cell)
		if err != nil {
			return nil, fmt.Errorf("%w: header column %d of '%s': %w", constants.ErrFormat, i, name, err)
		}
		header[i] = date
	}

	table := dto.NewTimeSeriesTable(name, header)

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				logger.Warnf(ctx, "skipping malformed record in %s: %s", name, err)
				continue
			}
			return nil, readErr(name, err)
		}
		if len(record) < minRecordFields {
			continue
		}

		line, _ := cr.FieldPos(0)
		subNational, country := record[dto.ColSubNational], record[dto.ColCountry]

		if opts.SkipRecoveredMarker && subNational == recoveredMarker {
			logger.Debugf(ctx, "%s:%d: skipping '%s' marker row for %s", name, line, recoveredMarker, country)
			continue
		}
		if opts.SkipCounties && isCounty(subNational, country) {
			logger.Debugf(ctx, "%s:%d: skipping county row '%s'", name, line, domain.LocationKey(subNational, country))
			continue
		}
		if opts.NormalizeTerritories && subNational == country {
			record[dto.ColSubNational] = ""
			subNational = ""
		}

		// Later duplicates overwrite earlier rows.
		table.Rows[domain.LocationKey(subNational, country)] = record
	}

	return table, nil
}

// NormalizeDate rewrites a m/d/yy header cell as yyyy-mm-dd. Two digit years
// are taken as 20yy.
func NormalizeDate(cell string) (string, error) {
	parts := strings.Split(strings.TrimSpace(cell), "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid date '%s': want m/d/yy", cell)
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", fmt.Errorf("invalid date '%s': want m/d/yy", cell)
		}
		nums[i] = n
	}

	month, day, year := nums[0], nums[1], nums[2]
	if len(parts[2]) <= 2 {
		year += 2000
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(t.Month()) != month || t.Day() != day {
		return "", fmt.Errorf("invalid date '%s': no such day", cell)
	}

	return t.Format(DateLayout), nil
}

func isCounty(subNational, country string) bool {
	return strings.Contains(subNational, ",") || (subNational == country && country == countryUS)
}

func startsWithDigit(s string) bool {
	return s != "" && unicode.IsDigit(rune(s[0]))
}

func readErr(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("%w: '%s': %w", constants.ErrFormat, name, err)
	}
	return fmt.Errorf("%w: can't read '%s': %w", constants.ErrIO, name, err)
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}
