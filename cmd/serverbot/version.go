package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/serverhealth/core/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(c *cobra.Command, _ []string) {
		fmt.Fprintln(c.OutOrStdout(), "serverbot "+buildinfo.String())
	},
}
