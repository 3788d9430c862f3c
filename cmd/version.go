package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Use-Tusk/tusk-harness/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version of Tusk Harness",
	Run: func(cmd *cobra.Command, args []string) {
		version.PrintVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
