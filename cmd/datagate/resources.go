package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artpar/datagate/config"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List configured resources",
	Long: `List every resource in the configuration with its operations.

Examples:
  datagate resources
  datagate resources --config /etc/datagate/config.yaml`,
	RunE: runResources,
}

func init() {
	rootCmd.AddCommand(resourcesCmd)
}

func runResources(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	if len(cfg.Resources) == 0 {
		fmt.Println("No resources configured.")
		return nil
	}

	resources := make([]config.ResourceConfig, len(cfg.Resources))
	copy(resources, cfg.Resources)
	sort.Slice(resources, func(i, j int) bool {
		return resources[i].ID() < resources[j].ID()
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tOPERATIONS\tPATHS")
	fmt.Fprintln(w, "--------\t----------\t-----")

	for _, res := range resources {
		names := make([]string, 0, len(res.Operations))
		for name := range res.Operations {
			names = append(names, name)
		}
		sort.Strings(names)

		paths := make([]string, 0, len(names))
		for _, name := range names {
			paths = append(paths, res.Operations[name].Path)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\n",
			res.ID(),
			strings.Join(names, ", "),
			strings.Join(paths, ", "),
		)
	}

	w.Flush()
	return nil
}
