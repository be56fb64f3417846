package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/qgate/internal/agent"
	"github.com/fyrsmithlabs/qgate/internal/analysis"
	"github.com/fyrsmithlabs/qgate/internal/orchestrator"
)

var analyzeReviewsDir string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [review-artifact...]",
	Short: "Aggregate review artifacts without running the gate",
	Long: `Count severity markers across review artifacts and print the
summary. Nothing is persisted and no decision is made.

Examples:
  qgate analyze --reviews ./reviews
  qgate analyze quality-review.md security-review.md`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeReviewsDir, "reviews", "", "directory of review artifacts")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	paths := args
	if analyzeReviewsDir != "" {
		listed, err := orchestrator.ListReviewArtifacts(analyzeReviewsDir)
		if err != nil {
			return err
		}
		paths = append(paths, listed...)
	}

	agg := analysis.NewAggregator(logger.Named("analysis"))
	summary, err := agg.Analyze(cmd.Context(), paths)
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

func printSummary(s *analysis.Summary) {
	fmt.Printf("Findings:\n")
	for _, sev := range agent.Severities() {
		fmt.Printf("  %-9s %d\n", string(sev)+":", s.Counts[sev])
	}
	fmt.Printf("  total:    %d\n", s.Total)
	if len(s.AffectedDomains) > 0 {
		fmt.Printf("Domains:\n")
		for _, d := range s.AffectedDomains {
			fmt.Printf("  - %s\n", d)
		}
	}
	if len(s.TechnologyStack) > 0 {
		fmt.Printf("Stack:\n")
		for _, t := range s.TechnologyStack {
			fmt.Printf("  - %s\n", t)
		}
	}
	for _, w := range s.Warnings {
		fmt.Printf("  ! %s\n", w)
	}
}
