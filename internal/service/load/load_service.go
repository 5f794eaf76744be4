package load

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ougirez/covtrack/internal/domain"
	"github.com/ougirez/covtrack/internal/domain/dto"
	"github.com/ougirez/covtrack/internal/pkg/config"
	"github.com/ougirez/covtrack/internal/pkg/logger"
	"github.com/ougirez/covtrack/internal/pkg/store"
	"github.com/ougirez/covtrack/internal/service/timeseries"
)

type Options struct {
	InputDir string
	Files    config.FilesConfig
	Policies timeseries.Policies
}

// Summary describes one load run.
type Summary struct {
	RunID               string    `json:"run_id"`
	InputDir            string    `json:"input_dir"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
	Locations           int       `json:"locations"`
	Facts               int       `json:"facts"`
	Dates               int       `json:"dates"`
	FirstDate           string    `json:"first_date,omitempty"`
	LastDate            string    `json:"last_date,omitempty"`
	AggregatedCountries []string  `json:"aggregated_countries"`
}

type Service struct {
	store store.Store
}

func NewLoadService(store store.Store) *Service {
	return &Service{store: store}
}

// Run loads the three feeds of opts.InputDir. Locations are written in one
// transaction and facts in a second one, after the location ids are known.
func (s *Service) Run(ctx context.Context, opts Options) (*Summary, error) {
	summary := &Summary{
		RunID:               uuid.NewString(),
		InputDir:            opts.InputDir,
		StartedAt:           time.Now().UTC(),
		AggregatedCountries: opts.Policies.Countries(),
	}
	ctx = logger.WithFields(ctx, zap.String("run_id", summary.RunID))

	set, err := s.parse(ctx, opts)
	if err != nil {
		return nil, err
	}

	set, err = timeseries.Reconcile(ctx, set, opts.Policies)
	if err != nil {
		return nil, fmt.Errorf("timeseries.Reconcile: %w", err)
	}

	dates := set.Confirmed.Dates()
	summary.Dates = len(dates)
	if len(dates) > 0 {
		summary.FirstDate, summary.LastDate = dates[0], dates[len(dates)-1]
	}

	locations := timeseries.Locations(set)
	err = s.store.InTx(ctx, func(ctx context.Context, tx store.Store) error {
		for _, location := range locations {
			if err := tx.UpsertLocation(ctx, location); err != nil {
				return fmt.Errorf("UpsertLocation, key-%s: %w", location.Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	summary.Locations = len(locations)
	logger.Infof(ctx, "upserted %d locations", len(locations))

	lookup, err := s.lookup(ctx)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx store.Store) error {
		return timeseries.Derive(set, lookup, func(key string, facts []*domain.Fact) error {
			if err := tx.UpsertFacts(ctx, facts); err != nil {
				return fmt.Errorf("UpsertFacts, key-%s: %w", key, err)
			}
			summary.Facts += len(facts)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}

	summary.FinishedAt = time.Now().UTC()
	logger.Info(ctx, "load finished",
		zap.Int("locations", summary.Locations),
		zap.Int("facts", summary.Facts),
		zap.Int("dates", summary.Dates),
		zap.Duration("took", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	return summary, nil
}

func (s *Service) parse(ctx context.Context, opts Options) (*dto.TableSet, error) {
	feeds := []struct {
		feed dto.Feed
		name string
	}{
		{dto.FeedConfirmed, opts.Files.Confirmed},
		{dto.FeedDeaths, opts.Files.Deaths},
		{dto.FeedRecovered, opts.Files.Recovered},
	}

	tables := make([]*dto.TimeSeriesTable, len(feeds))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, f := range feeds {
		i, f := i, f
		eg.Go(func() error {
			table, err := timeseries.ParseFile(egCtx, filepath.Join(opts.InputDir, f.name), timeseries.DefaultParseOptions(f.feed))
			if err != nil {
				return fmt.Errorf("timeseries.ParseFile, feed-%s: %w", f.feed, err)
			}
			logger.Debugf(ctx, "parsed %d %s rows from %s", len(table.Rows), f.feed, f.name)
			tables[i] = table
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &dto.TableSet{Confirmed: tables[0], Deaths: tables[1], Recovered: tables[2]}, nil
}

func (s *Service) lookup(ctx context.Context) (map[string]int64, error) {
	locations, err := s.store.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListLocations: %w", err)
	}

	lookup := make(map[string]int64, len(locations))
	for _, location := range locations {
		lookup[location.Key()] = location.ID
	}
	return lookup, nil
}
