package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ougirez/covtrack/internal/pkg/constants"
	"github.com/ougirez/covtrack/internal/pkg/logger"
	"github.com/ougirez/covtrack/internal/pkg/store"
	"github.com/ougirez/covtrack/internal/pkg/store/migrations"
	"github.com/ougirez/covtrack/internal/pkg/store/xpgx"
	"github.com/ougirez/covtrack/internal/service/fetch"
	"github.com/ougirez/covtrack/internal/service/load"
)

func newLoadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the confirmed, deaths and recovered feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runLoad(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringP("input", "f", "./", "directory holding the three feed files")
	f.String("report", "", "write a JSON run summary to this path")
	f.Bool("migrate", true, "apply schema migrations before loading")
	f.Bool("fetch", false, "download the feeds into the input directory first")
	f.String("source-url", constants.DefaultSourceURL, "base URL the feeds are downloaded from")
	f.String("confirmed-file", constants.DefaultConfirmedFile, "confirmed feed file name")
	f.String("deaths-file", constants.DefaultDeathsFile, "deaths feed file name")
	f.String("recovered-file", constants.DefaultRecoveredFile, "recovered feed file name")
	bindFlags(a.v, f, map[string]string{
		"input":          constants.ViperInputDirKey,
		"report":         constants.ViperReportPathKey,
		"migrate":        constants.ViperMigrateKey,
		"fetch":          constants.ViperFetchEnabledKey,
		"source-url":     constants.ViperFetchSourceKey,
		"confirmed-file": constants.ViperFilesConfirmedKey,
		"deaths-file":    constants.ViperFilesDeathsKey,
		"recovered-file": constants.ViperFilesRecoveredKey,
	})

	return cmd
}

func (a *app) runLoad(ctx context.Context) error {
	cfg := a.cfg

	policies, err := cfg.Policies()
	if err != nil {
		return err
	}

	if cfg.Fetch.Enabled {
		err = fetch.NewFetchService(nil, cfg.Fetch.Retries).
			Fetch(ctx, cfg.Fetch.SourceURL, cfg.Input.Dir, cfg.Files.Names())
		if err != nil {
			return fmt.Errorf("fetch feeds: %w", err)
		}
	}

	pool, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Migrate {
		if err = migrate(pool); err != nil {
			return err
		}
	}

	summary, err := load.NewLoadService(store.NewStore(xpgx.NewPool(pool))).Run(ctx, load.Options{
		InputDir: cfg.Input.Dir,
		Files:    cfg.Files,
		Policies: policies,
	})
	if err != nil {
		return err
	}

	if cfg.Report.Path != "" {
		if err = load.WriteReport(cfg.Report.Path, summary); err != nil {
			return err
		}
		logger.Infof(ctx, "wrote report to %s", cfg.Report.Path)
	}

	return nil
}

func (a *app) connect(ctx context.Context) (*pgxpool.Pool, error) {
	db := a.cfg.DB
	pool, err := xpgx.Connect(ctx, db.DSN(), db.ConnectRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to %s:%d/%s: %w", constants.ErrDB, db.Host, db.Port, db.Name, err)
	}
	return pool, nil
}

func migrate(pool *pgxpool.Pool) error {
	if err := migrations.Up(pool); err != nil {
		return fmt.Errorf("%w: %w", constants.ErrDB, err)
	}
	return nil
}
