// Package cmd implements the CLI commands for comps-server.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "comps-server",
	Short: "Price comparables for second-hand listings",
	Long: "An API-first service that searches the marketplace for comparable listings, " +
		"filters misread and outlier prices, and returns a robust median price estimate.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file path (optional, environment overrides apply)")
	rootCmd.AddCommand(versionCommand())
}

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
