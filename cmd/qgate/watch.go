package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/qgate/internal/orchestrator"
)

var (
	watchFeatureID  string
	watchReviewsDir string
	watchDebounce   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the gate whenever review artifacts change",
	Long: `Watch the reviews directory and re-evaluate the gate on every
change, debounced. Watching stops when the gate escalates or on an
internal error.

Examples:
  qgate watch --feature feat-auth --reviews ./reviews
  qgate watch --feature feat-auth --reviews ./reviews --debounce 5s`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFeatureID, "feature", "", "feature identifier (required)")
	watchCmd.Flags().StringVar(&watchReviewsDir, "reviews", "", "directory of review artifacts (required)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "minimum delay between evaluations")
	_ = watchCmd.MarkFlagRequired("feature")
	_ = watchCmd.MarkFlagRequired("reviews")
}

func runWatch(cmd *cobra.Command, args []string) error {
	orch, _, err := newOrchestrator()
	if err != nil {
		exitCode = int(orchestrator.ExitError)
		return err
	}

	limit := rate.Every(watchDebounce)
	err = orch.Watch(cmd.Context(), watchFeatureID, watchReviewsDir, limit)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		exitCode = int(orchestrator.ExitError)
		return err
	}

	exitCode = int(orchestrator.ExitEscalationNeeded)
	return nil
}
