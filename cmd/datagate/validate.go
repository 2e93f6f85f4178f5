package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/datagate/bootstrap"
	"github.com/artpar/datagate/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the datagate configuration file.

Checks:
  - YAML syntax is valid
  - Resources, operations and authorization are well formed
  - All expressions (validators, filters, providers) compile
  - Remote service is reachable (optional)

Examples:
  datagate validate
  datagate validate --config /etc/datagate/config.yaml
  datagate validate --check-remote`,
	RunE: runValidate,
}

var validateCheckRemote bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckRemote, "check-remote", false, "check if the remote base URL is reachable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	// Check file exists
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	// Load and validate config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Printf("  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config syntax valid\n", checkMark)

	// Compile every expression by building the handlers once
	if err := bootstrap.Validate(cfg); err != nil {
		fmt.Printf("  %s Expressions compile\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Expressions compile\n", checkMark)

	// Show config summary
	fmt.Printf("  %s Remote: %s\n", checkMark, cfg.Transport.BaseURL)
	fmt.Printf("  %s Recorder: %s\n", checkMark, cfg.Recorder.Mode)
	operations := 0
	for _, res := range cfg.Resources {
		operations += len(res.Operations)
	}
	fmt.Printf("  %s Resources configured: %d (%d operations)\n", checkMark, len(cfg.Resources), operations)

	// Optional: check remote
	if validateCheckRemote {
		if err := checkRemoteReachable(cfg.Transport.BaseURL); err != nil {
			fmt.Printf("  %s Remote reachable\n", crossMark)
			fmt.Printf("      Error: %v\n", err)
		} else {
			fmt.Printf("  %s Remote reachable\n", checkMark)
		}
	}

	fmt.Println()
	fmt.Println("Configuration is valid.")
	return nil
}

func checkRemoteReachable(url string) error {
	if url == "" {
		return fmt.Errorf("transport.base_url is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "HEAD", url, nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
