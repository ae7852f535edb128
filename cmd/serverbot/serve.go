package main

import (
	"github.com/spf13/cobra"

	"github.com/m3rciful/serverhealth/core/cmd"
	"github.com/m3rciful/serverhealth/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and the ingest API",
	Long: `serve applies pending migrations, connects to the session store and runs
the Telegram bot until SIGINT or SIGTERM. When api.listen is set the ingest
API runs alongside it.`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		return cmd.Run(c.Context(), cmd.Options{
			ConfigPath: resolvedConfigPath(),
			LoadConfig: app.LoadConfig,
			Bootstrap:  app.Bootstrap,
		})
	},
}
