package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ougirez/covtrack/internal/pkg/config"
	"github.com/ougirez/covtrack/internal/pkg/constants"
	"github.com/ougirez/covtrack/internal/pkg/logger"
)

// app carries the configuration shared by the subcommands. cfg is set by the
// root command before any subcommand runs.
type app struct {
	v   *viper.Viper
	cfg *config.Config
}

func newApp() *app {
	return &app{v: viper.New()}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "covtrack",
		Short:         "Load CSSE COVID-19 time series into Postgres",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", constants.ErrConfiguration, err)
	})

	// -h is the database host, help stays on --help
	f := cmd.PersistentFlags()
	f.Bool("help", false, "help for covtrack")
	f.StringP("db-host", "h", "localhost", "database host")
	f.StringP("db-user", "u", "", "database user (required)")
	f.StringP("db-password", "p", "", "database password")
	f.Int("db-port", 5432, "database port")
	f.String("db-name", "covtrack", "database name")
	f.String("db-sslmode", "disable", "database sslmode")
	f.String("log-level", "info", "log level: debug, info, warn, error")
	f.String("config", "", "optional config file (yaml, json, toml)")
	bindFlags(a.v, f, map[string]string{
		"db-host":     constants.ViperDBHostKey,
		"db-user":     constants.ViperDBUserKey,
		"db-password": constants.ViperDBPasswordKey,
		"db-port":     constants.ViperDBPortKey,
		"db-name":     constants.ViperDBNameKey,
		"db-sslmode":  constants.ViperDBSSLModeKey,
		"log-level":   constants.ViperLogLevelKey,
		"config":      constants.ViperConfigFileKey,
	})

	cmd.AddCommand(newLoadCmd(a))
	cmd.AddCommand(newMigrateCmd(a))
	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}

	if _, err = logger.New(cfg.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", constants.ErrConfiguration, err)
	}

	a.cfg = cfg
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %s", name, err))
		}
	}
}

func execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logger.Sync()

	err := newRootCmd(newApp()).ExecuteContext(ctx)
	if err != nil {
		logger.Error(ctx, err.Error())
		fmt.Fprintln(os.Stderr, "covtrack:", err)
	}

	return exitCode(err)
}
