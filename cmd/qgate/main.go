// Package main implements the qgate CLI, the process boundary of the quality
// gate. Exit codes: 0 proceed, 1 refinement plan produced, 2 escalation
// required, 3 internal error.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qgate/internal/config"
	"github.com/fyrsmithlabs/qgate/internal/logging"
	"github.com/fyrsmithlabs/qgate/internal/orchestrator"
	"github.com/fyrsmithlabs/qgate/internal/store"
	"github.com/fyrsmithlabs/qgate/internal/telemetry"
)

var version = "dev"

var (
	configPath string

	cfg      *config.Config
	logger   *zap.Logger
	provider *telemetry.Provider

	// exitCode is the process exit status; gate commands set it from the
	// orchestrator's exit signal.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "qgate",
	Short: "Quality gate orchestration for multi-agent code pipelines",
	Long: `qgate gates a multi-agent code-generation pipeline on aggregated
quality and security findings. It discovers available agents, aggregates
severity-tagged review artifacts, and decides whether to proceed, build a
refinement plan, or escalate to a human.

Exit codes:
  0  proceed to the next pipeline phase
  1  refinement plan produced; dispatch tasks and re-run the gate
  2  escalation required; halt automated iteration
  3  internal error`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/qgate/config.yaml)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
}

// setup loads configuration and builds the logger and telemetry providers.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err = logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	provider, err = telemetry.Setup(cmd.Context(), cfg.Telemetry)
	if err != nil {
		logger.Warn("telemetry setup failed, continuing without", zap.Error(err))
	}

	return nil
}

// newOrchestrator wires the artifact store and orchestrator from config.
func newOrchestrator() (*orchestrator.Orchestrator, *store.Store, error) {
	st, err := store.New(cfg.Gate.ArtifactRoot, logger.Named("store"))
	if err != nil {
		return nil, nil, err
	}
	orch, err := orchestrator.New(orchestrator.Config{
		AgentsDir:     cfg.Gate.AgentsDir,
		WorkspaceRoot: cfg.Gate.WorkspaceRoot,
		MaxIterations: cfg.Gate.MaxIterations,
	}, st, logger)
	if err != nil {
		return nil, nil, err
	}
	return orch, st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if exitCode == 0 {
			exitCode = int(orchestrator.ExitError)
		}
	}

	if provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := provider.Shutdown(ctx); err != nil && logger != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
		cancel()
	}
	if logger != nil {
		_ = logger.Sync()
	}

	os.Exit(exitCode)
}
