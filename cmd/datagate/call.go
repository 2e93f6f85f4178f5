package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/datagate/bootstrap"
	"github.com/artpar/datagate/config"
	"github.com/artpar/datagate/domain/call"
)

var callCmd = &cobra.Command{
	Use:   "call <domain:name> <operation> [key=value...]",
	Short: "Run one operation against a configured resource",
	Long: `Run one call operation and print the resulting items as JSON.

Parameters are given as key=value pairs. Values that parse as JSON
(numbers, booleans, quoted strings, arrays, objects) are passed typed,
everything else as text.

Examples:
  datagate call inventory:item findById id=42
  datagate call inventory:item find q=widgets limit=10
  datagate call inventory:item findByIdRange fromId=10 toId=20
  datagate call crm:contact put data='[{"name":"Ada"}]'`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCall,
}

var callTimeout time.Duration

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().DurationVar(&callTimeout, "timeout", 60*time.Second, "overall call timeout")
}

func runCall(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	// Log to stderr so stdout carries only the result
	logger := bootstrap.SetupLogger(cfg.Logging).Output(os.Stderr)

	app, err := bootstrap.NewWithOptions(cfg, bootstrap.Options{Logger: &logger, Version: version})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}
	defer app.Shutdown()

	id := args[0]
	op := args[1]

	domain, name, ok := strings.Cut(id, ":")
	if !ok {
		return fmt.Errorf("resource must be domain:name, got %q", id)
	}

	h, found := app.Resource(domain, name)
	if !found {
		return fmt.Errorf("resource %q not configured", strings.ToLower(id))
	}

	params, err := parseParams(args[2:])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	items, err := h.Do(ctx, op, params)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// parseParams turns key=value arguments into a parameter bag. Values
// are JSON-decoded when possible so ids arrive numeric and data arrives
// structured.
func parseParams(args []string) (call.Params, error) {
	if len(args) == 0 {
		return nil, nil
	}
	params := make(call.Params, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("parameter %q is not key=value", arg)
		}
		var typed any
		if err := json.Unmarshal([]byte(value), &typed); err == nil {
			params[key] = typed
		} else {
			params[key] = value
		}
	}
	return params, nil
}
