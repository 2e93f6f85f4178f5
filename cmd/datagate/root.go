package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "datagate",
	Short: "Declarative gateway to remote data services",
	Long: `Datagate turns remote HTTP services into typed resources.

Resources and their operations (get, find, findById, findByIdRange,
put) are declared in configuration; the engine assembles parameters,
carries credentials, retries transient failures and coerces outputs.

Quick start:
  datagate validate   # Check the configuration
  datagate serve      # Start the gateway with the admin endpoint

Usage:
  datagate resources  # List configured resources
  datagate call       # Run one operation from the command line
  datagate calls      # Inspect recorded call activity`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "datagate.yaml", "config file path")
}
