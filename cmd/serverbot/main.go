package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/m3rciful/serverhealth/core/cmd"
)

const defaultConfigPath = "config.yaml"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "serverbot",
	Short: "Telegram bot for server health monitoring",
	Long: `serverbot keeps an inventory of monitored servers, receives metric samples
from agents over HTTP and answers in Telegram with status, charts, forecasts
and AI analysis.

Configuration is read from a YAML file (--config, $CONFIG_PATH or ./config.yaml)
and overridden by environment variables. A .env file in the working directory
is loaded first when present.`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to load .env: %v", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)
}

func resolvedConfigPath() string {
	return cmd.ResolveConfigPath(configPath, defaultConfigPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
