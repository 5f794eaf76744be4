package main

import (
	"github.com/spf13/cobra"

	"github.com/ougirez/covtrack/internal/pkg/logger"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the locations and facts tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err = migrate(pool); err != nil {
				return err
			}
			logger.Infof(cmd.Context(), "schema is up to date")
			return nil
		},
	}
}
