package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/qgate/internal/agent"
	"github.com/fyrsmithlabs/qgate/internal/decision"
	"github.com/fyrsmithlabs/qgate/internal/orchestrator"
)

var (
	runFeatureID     string
	runReviewsDir    string
	runAgentsDir     string
	runMaxIterations int
)

var runCmd = &cobra.Command{
	Use:   "run [review-artifact...]",
	Short: "Run the quality gate for a feature",
	Long: `Run one full gate evaluation: discover agents, aggregate review
artifacts, decide, and on a refine outcome build the refinement plan.

Review artifacts can be passed as arguments or gathered from --reviews.

Examples:
  # Gate a feature on the reviews directory
  qgate run --feature feat-auth --reviews ./reviews

  # Gate on explicit artifacts
  qgate run --feature feat-auth quality-review.md security-review.md`,
	RunE: runGate,
}

func init() {
	runCmd.Flags().StringVar(&runFeatureID, "feature", "", "feature identifier (required)")
	runCmd.Flags().StringVar(&runReviewsDir, "reviews", "", "directory of review artifacts")
	runCmd.Flags().StringVar(&runAgentsDir, "agents", "", "agent descriptor store (overrides config)")
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "refinement ceiling (overrides config)")
	_ = runCmd.MarkFlagRequired("feature")
}

func runGate(cmd *cobra.Command, args []string) error {
	applyGateOverrides()

	orch, _, err := newOrchestrator()
	if err != nil {
		exitCode = int(orchestrator.ExitError)
		return err
	}

	paths := args
	if runReviewsDir != "" {
		listed, err := orchestrator.ListReviewArtifacts(runReviewsDir)
		if err != nil {
			exitCode = int(orchestrator.ExitError)
			return err
		}
		paths = append(paths, listed...)
	}

	res, err := orch.Run(cmd.Context(), runFeatureID, paths)
	if err != nil {
		exitCode = int(orchestrator.ExitError)
		return err
	}

	printResult(res)
	exitCode = int(res.Signal)
	return nil
}

func applyGateOverrides() {
	if runAgentsDir != "" {
		cfg.Gate.AgentsDir = runAgentsDir
	}
	if runMaxIterations > 0 {
		cfg.Gate.MaxIterations = runMaxIterations
	}
}

func printResult(res *orchestrator.Result) {
	d := res.Decision
	fmt.Printf("Feature:   %s\n", res.FeatureID)
	fmt.Printf("Outcome:   %s\n", d.Outcome)
	fmt.Printf("Reason:    %s\n", d.Reason)
	fmt.Printf("Iteration: %d/%d\n", d.Iteration.Current, d.Iteration.Max)

	if res.Summary != nil {
		fmt.Printf("Findings:  %d blocking, %d warning, %d info\n",
			res.Summary.Blocking(),
			res.Summary.Counts[agent.SeverityWarning],
			res.Summary.Counts[agent.SeverityInfo],
		)
	}

	if d.Outcome == decision.OutcomeRefinementNeeded && res.Plan != nil {
		fmt.Printf("Tasks:\n")
		for _, task := range res.Plan.Tasks {
			fmt.Printf("  - %s -> %s (%s)\n", task.AgentName, task.Domain, task.Workspace)
		}
		if res.Selection != nil {
			for _, gap := range res.Selection.Gaps() {
				fmt.Printf("  ! no agent available for domain %q\n", gap)
			}
		}
	}

	fmt.Printf("Next actions:\n")
	for _, action := range d.NextActions {
		fmt.Printf("  - %s\n", action)
	}
}
