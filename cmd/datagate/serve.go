package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/datagate/bootstrap"
	"github.com/artpar/datagate/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway",
	Long: `Start the datagate process.

The process will:
  - Load configuration from datagate.yaml (or --config)
  - Or load configuration from DATAGATE_* environment variables
  - Build every configured resource and its call operations
  - Serve the admin endpoint (health, resources, call activity, metrics)
  - Watch the config file and rebuild resources on change

Environment variables (for Docker deployments):
  DATAGATE_BASE_URL       - Remote service base URL (required)
  DATAGATE_RECORDER_MODE  - Call audit store: none, memory or sqlite
  DATAGATE_RECORDER_DSN   - SQLite path (default: datagate.db)
  DATAGATE_ADMIN_PORT     - Admin port (default: 8089)
  DATAGATE_LOG_LEVEL      - Log level: debug, info, warn, error

Examples:
  datagate serve
  datagate serve --config /etc/datagate/config.yaml
  datagate serve --hot-reload=false

  # Docker (env vars only):
  DATAGATE_BASE_URL=https://api.example.com datagate serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	hasEnvConfig := config.HasEnvConfig()

	// No configuration at all
	if !hasConfigFile && !hasEnvConfig {
		fmt.Println("No configuration found.")
		fmt.Println()
		fmt.Printf("Option 1: Create %s (see README for the format)\n", cfgFile)
		fmt.Println("Option 2: Set DATAGATE_BASE_URL environment variable")
		fmt.Println()
		fmt.Println("Example (env vars):")
		fmt.Println("  DATAGATE_BASE_URL=https://api.example.com datagate serve")
		return nil
	}

	// Create application
	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with a config file
		app, err = bootstrap.NewWithHotReload(cfgFile, bootstrap.Options{Version: version})
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile {
			fmt.Println("Running with environment variables (no config file)")
		}

		app, err = bootstrap.NewWithOptions(cfg, bootstrap.Options{Version: version})
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
