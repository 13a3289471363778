// Package cli implements the Blank command-line interface using Cobra.
// Each subcommand maps to one progression action (login, mission, shop, ...)
// or to running the local daemon.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "blank",
	Short: "Blank: blog growth progression for 블랭크",
	Long: `Blank tracks your blogging progress: XP, ranks, achievements,
daily missions, login streaks and the XP reward shop.

Run 'blank serve' to expose the dashboard API on localhost, or use the
subcommands below to act on your progression directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print machine-readable JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
