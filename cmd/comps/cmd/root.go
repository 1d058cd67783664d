// Package cmd implements the comps CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/fliplens-comps/internal/api/client"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "comps",
		Short: "CLI client for the comps server",
		Long: "comps is a command-line client for the comps API.\n" +
			"It looks up price comparables, suggests listing prices in pence,\n" +
			"and inspects server health, quota and snapshot history.",
		SilenceUsage: true,
	}
)

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default $HOME/.comps.yaml)")
	rootCmd.PersistentFlags().
		String("server", "http://localhost:5055", "API server URL")
	rootCmd.PersistentFlags().
		String("output", "table", "output format (table, json)")

	cobra.CheckErr(viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")))

	rootCmd.AddCommand(priceCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(quotaCmd())
	rootCmd.AddCommand(snapshotsCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".comps")
	}

	viper.SetEnvPrefix("COMPS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
