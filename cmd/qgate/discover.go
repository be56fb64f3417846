package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/qgate/internal/registry"
)

var discoverAgentsDir string

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover and list the registered agents",
	Long: `Walk the agent descriptor store and print the resulting index.
Malformed descriptors are skipped and reported as warnings.

Examples:
  qgate discover
  qgate discover --agents ./agents`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&discoverAgentsDir, "agents", "", "agent descriptor store (overrides config)")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	dir := cfg.Gate.AgentsDir
	if discoverAgentsDir != "" {
		dir = discoverAgentsDir
	}

	idx, err := registry.Discover(cmd.Context(), dir, logger.Named("registry"))
	if err != nil {
		return err
	}

	fmt.Printf("Agents (%d):\n", idx.Len())
	for _, a := range idx.Agents {
		domains := make([]string, len(a.Domains))
		for i, d := range a.Domains {
			domains[i] = string(d)
		}
		caps := ""
		if a.RefinementCapable {
			caps = "refine"
		}
		if a.ValidationCapable {
			if caps != "" {
				caps += ",validate"
			} else {
				caps = "validate"
			}
		}
		fmt.Printf("  %-24s %-10s domains=%s %s\n", a.Name, a.Kind, strings.Join(domains, ","), caps)
	}
	for _, w := range idx.Warnings {
		fmt.Printf("  ! %s\n", w)
	}
	return nil
}
