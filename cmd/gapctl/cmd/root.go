// Package cmd implements the gapctl CLI commands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "gapctl",
		Short: "CLI client for Google marketing APIs",
		Long: "gapctl is a read-only command-line client for Google Analytics,\n" +
			"Search Console, and Merchant Center. It aggregates reports,\n" +
			"search performance, and product feed health from the terminal.",
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
	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default $HOME/.gapctl.json)")
	rootCmd.PersistentFlags().
		Bool("no-cache", false, "bypass the response cache for this invocation")
	rootCmd.PersistentFlags().
		Int("timeout", 0, "per-request timeout in milliseconds (overrides config)")
	rootCmd.PersistentFlags().
		String("output", "json", "output format (json, table)")

	cobra.CheckErr(viper.BindPFlag("no-cache", rootCmd.PersistentFlags().Lookup("no-cache")))
	cobra.CheckErr(viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout")))
	cobra.CheckErr(viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")))

	viper.SetEnvPrefix("GAPCTL")
	viper.AutomaticEnv()

	rootCmd.AddCommand(analyticsCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(merchantCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
}

func jsonOutput() bool {
	return viper.GetString("output") != "table"
}
