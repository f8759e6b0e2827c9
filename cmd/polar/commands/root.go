package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/polar-client/internal/constants"
)

// NewRootCommand creates the polar command with every subcommand attached.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "polar",
		Short: "Polar billing API CLI",
		Long: `A command-line interface for the Polar billing API.

Browse products, subscriptions, customers and orders with server-side
filters, and run bulk exports of any collection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.polar/config.yml)")
	rootCmd.PersistentFlags().StringP("server", "s", "", "API server (production, sandbox)")
	rootCmd.PersistentFlags().StringP("api", "a", "", "API endpoint URL, overrides --server")
	rootCmd.PersistentFlags().StringP("token", "t", "", "organization access token")
	rootCmd.PersistentFlags().StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("api", rootCmd.PersistentFlags().Lookup("api"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(NewLoginCommand())
	rootCmd.AddCommand(NewLogoutCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewProductsCommand())
	rootCmd.AddCommand(NewSubscriptionsCommand())
	rootCmd.AddCommand(NewCustomersCommand())
	rootCmd.AddCommand(NewOrdersCommand())
	rootCmd.AddCommand(NewExportsCommand())

	return rootCmd
}

// InitConfig reads the configuration file and environment into viper.
func InitConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, constants.ConfigDirName))
		viper.SetConfigName("config")
	}

	viper.SetConfigType("yaml")

	// POLAR_SERVER, POLAR_API, POLAR_OUTPUT and POLAR_ACCESS_TOKEN
	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.AutomaticEnv()
	_ = viper.BindEnv("token", constants.EnvAccessToken)

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
