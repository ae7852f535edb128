package main

import (
	"fmt"

	"github.com/spf13/cobra"

	coredatabase "github.com/m3rciful/serverhealth/core/database"
	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down]",
	Short: "Apply or roll back database migrations",
	Long: `migrate up applies every pending migration; migrate down rolls back the
most recent one. Without an argument it migrates up.`,
	Example: `  serverbot migrate
  serverbot migrate down --config /etc/serverbot/config.yaml`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(coredatabase.Up), string(coredatabase.Down)},
	RunE: func(c *cobra.Command, args []string) error {
		dir := coredatabase.Up
		if len(args) == 1 {
			dir = coredatabase.Direction(args[0])
		}
		if dir != coredatabase.Up && dir != coredatabase.Down {
			return fmt.Errorf("unknown direction %q: want up or down", args[0])
		}

		cfg, err := app.Load(resolvedConfigPath())
		if err != nil {
			return err
		}
		if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
			return err
		}
		defer func() { _ = logger.Shutdown() }()

		if err := coredatabase.Migrate(c.Context(), cfg.Database, dir); err != nil {
			return err
		}
		if v, dirty, err := coredatabase.Version(cfg.Database); err == nil {
			fmt.Fprintf(c.OutOrStdout(), "schema version %d (dirty=%t)\n", v, dirty)
		}
		return nil
	},
}
