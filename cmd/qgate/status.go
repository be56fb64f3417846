package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/qgate/internal/store"
)

var statusFeatureID string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted gate state for a feature",
	Long: `Print the last persisted decision, iteration, and refinement plan
for a feature without re-running the gate.

Examples:
  qgate status --feature feat-auth`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFeatureID, "feature", "", "feature identifier (required)")
	_ = statusCmd.MarkFlagRequired("feature")
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := store.New(cfg.Gate.ArtifactRoot, logger.Named("store"))
	if err != nil {
		return err
	}

	d, err := st.LoadDecision(statusFeatureID)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Printf("Feature:   %s\n", statusFeatureID)
		fmt.Printf("Outcome:   none (gate has not run)\n")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Feature:   %s\n", statusFeatureID)
	fmt.Printf("Outcome:   %s\n", d.Outcome)
	fmt.Printf("Reason:    %s\n", d.Reason)
	fmt.Printf("Iteration: %d/%d\n", d.Iteration.Current, d.Iteration.Max)
	fmt.Printf("Decided:   %s\n", d.DecidedAt.Format("2006-01-02 15:04:05 MST"))

	p, err := st.LoadPlan(statusFeatureID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Plan (iteration %d):\n", p.Iteration)
	for _, task := range p.Tasks {
		fmt.Printf("  - %s -> %s (%s)\n", task.AgentName, task.Domain, task.Workspace)
	}
	if len(p.ValidationAgents) > 0 {
		fmt.Printf("Validators:\n")
		for _, v := range p.ValidationAgents {
			fmt.Printf("  - %s\n", v.Name)
		}
	}
	return nil
}
