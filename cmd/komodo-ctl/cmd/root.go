package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "komodo-ctl",
	Short: "Command line interface for the Komodo core",
	Long:  `CLI for managing Komodo resources (servers, deployments, builds, builders, repos).`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("url", "http://localhost:9120", "Core URL")
	rootCmd.PersistentFlags().String("jwt", "", "Bearer token from a login")
	rootCmd.PersistentFlags().String("api-key", "", "API key")
	rootCmd.PersistentFlags().String("api-secret", "", "API secret")

	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
	viper.BindPFlag("jwt", rootCmd.PersistentFlags().Lookup("jwt"))
	viper.BindPFlag("api_key", rootCmd.PersistentFlags().Lookup("api-key"))
	viper.BindPFlag("api_secret", rootCmd.PersistentFlags().Lookup("api-secret"))
}

// initConfig reads in ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("KOMODO")
	viper.AutomaticEnv()
}
