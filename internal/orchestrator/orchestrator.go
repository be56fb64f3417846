package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/qgate/internal/analysis"
	"github.com/fyrsmithlabs/qgate/internal/decision"
	"github.com/fyrsmithlabs/qgate/internal/plan"
	"github.com/fyrsmithlabs/qgate/internal/registry"
	"github.com/fyrsmithlabs/qgate/internal/selection"
	"github.com/fyrsmithlabs/qgate/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/qgate/internal/orchestrator"

// ExitSignal is the process-level gate outcome consumed by the caller.
type ExitSignal int

const (
	// ExitProceed: no blocking issues, advance the pipeline.
	ExitProceed ExitSignal = 0
	// ExitRefinementNeeded: a refinement plan was produced; the caller must
	// dispatch its tasks and re-invoke the gate.
	ExitRefinementNeeded ExitSignal = 1
	// ExitEscalationNeeded: iteration budget exhausted with blocking issues
	// remaining; a human must take over.
	ExitEscalationNeeded ExitSignal = 2
	// ExitError: internal failure (discovery or persistence).
	ExitError ExitSignal = 3
)

// Config holds the orchestrator's settings.
type Config struct {
	// AgentsDir is the descriptor store walked during discovery.
	AgentsDir string

	// WorkspaceRoot is where refinement task workspaces are namespaced.
	WorkspaceRoot string

	// MaxIterations is the refinement ceiling per feature.
	MaxIterations int
}

// Result carries one gate run's outputs for the caller.
type Result struct {
	RunID     string              `json:"run_id"`
	FeatureID string              `json:"feature_id"`
	Signal    ExitSignal          `json:"signal"`
	Decision  *decision.Decision  `json:"decision,omitempty"`
	Summary   *analysis.Summary   `json:"summary,omitempty"`
	Selection *selection.Selection `json:"selection,omitempty"`
	Plan      *plan.Plan          `json:"plan,omitempty"`
}

// Orchestrator drives the quality gate for one feature at a time.
type Orchestrator struct {
	cfg    Config
	store  *store.Store
	logger *zap.Logger

	aggregator *analysis.Aggregator
	engine     *decision.Engine
	selector   *selection.Selector
	builder    *plan.Builder

	tracer      trace.Tracer
	meter       metric.Meter
	runsCounter metric.Int64Counter
	taskCounter metric.Int64Counter
}

// New creates an orchestrator. A nil logger disables logging.
func New(cfg Config, st *store.Store, logger *zap.Logger) (*Orchestrator, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = decision.DefaultMaxIterations
	}

	o := &Orchestrator{
		cfg:        cfg,
		store:      st,
		logger:     logger,
		aggregator: analysis.NewAggregator(logger.Named("analysis")),
		engine:     decision.NewEngine(logger.Named("decision")),
		selector:   selection.NewSelector(logger.Named("selection")),
		builder:    plan.NewBuilder(cfg.WorkspaceRoot, logger.Named("plan")),
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.Meter(instrumentationName),
	}
	o.initMetrics()

	return o, nil
}

func (o *Orchestrator) initMetrics() {
	var err error

	o.runsCounter, err = o.meter.Int64Counter(
		"qgate.gate.runs_total",
		metric.WithDescription("Total gate runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		o.logger.Warn("failed to create runs counter", zap.Error(err))
	}

	o.taskCounter, err = o.meter.Int64Counter(
		"qgate.plan.tasks_total",
		metric.WithDescription("Total refinement tasks planned"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		o.logger.Warn("failed to create task counter", zap.Error(err))
	}
}

// Run executes one full gate evaluation for the feature against the given
// review artifacts. Discovery and aggregation run concurrently; the decision
// requires both; selection and planning run only on a refine outcome. Each
// stage's artifact is persisted before the next stage begins.
//
// On error the returned result carries ExitError and prior persisted
// artifacts are left intact for diagnosis.
func (o *Orchestrator) Run(ctx context.Context, featureID string, artifactPaths []string) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "gate.run")
	defer span.End()

	res := &Result{
		RunID:     uuid.New().String(),
		FeatureID: featureID,
		Signal:    ExitError,
	}
	span.SetAttributes(
		attribute.String("feature_id", featureID),
		attribute.String("run_id", res.RunID),
	)

	if err := store.ValidateFeatureID(featureID); err != nil {
		return o.fail(span, res, err)
	}

	o.logger.Info("gate run starting",
		zap.String("feature", featureID),
		zap.String("run_id", res.RunID),
		zap.Int("artifacts", len(artifactPaths)),
	)

	// Discovery and aggregation have no data dependency; join before the
	// decision. Discovery failure is fatal, aggregation recovers content
	// errors internally.
	var idx *registry.Index
	var summary *analysis.Summary

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		idx, err = o.discover(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = o.analyze(gctx, artifactPaths)
		return err
	})
	if err := g.Wait(); err != nil {
		return o.fail(span, res, err)
	}

	if err := o.store.SaveDiscovery(featureID, idx); err != nil {
		return o.fail(span, res, err)
	}
	if err := o.store.SaveAnalysis(featureID, summary); err != nil {
		return o.fail(span, res, err)
	}
	res.Summary = summary

	iter, err := o.store.LoadIteration(featureID, o.cfg.MaxIterations)
	if err != nil {
		return o.fail(span, res, err)
	}

	d := o.engine.Evaluate(summary, iter)
	res.Decision = &d
	if err := o.store.SaveDecision(featureID, &d); err != nil {
		return o.fail(span, res, err)
	}
	if err := o.store.SaveIteration(featureID, d.Iteration); err != nil {
		return o.fail(span, res, err)
	}
	span.SetAttributes(attribute.String("outcome", string(d.Outcome)))

	switch d.Outcome {
	case decision.OutcomeProceed:
		res.Signal = ExitProceed
	case decision.OutcomeEscalationNeeded:
		res.Signal = ExitEscalationNeeded
	case decision.OutcomeRefinementNeeded:
		if err := o.refine(ctx, featureID, res, idx, summary, d.Iteration); err != nil {
			return o.fail(span, res, err)
		}
		res.Signal = ExitRefinementNeeded
	}

	if o.runsCounter != nil {
		o.runsCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", string(d.Outcome)),
		))
	}

	o.logger.Info("gate run complete",
		zap.String("feature", featureID),
		zap.String("outcome", string(d.Outcome)),
		zap.Int("exit_signal", int(res.Signal)),
	)

	return res, nil
}

func (o *Orchestrator) discover(ctx context.Context) (*registry.Index, error) {
	ctx, span := o.tracer.Start(ctx, "gate.discover")
	defer span.End()

	idx, err := registry.Discover(ctx, o.cfg.AgentsDir, o.logger.Named("registry"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("agents", idx.Len()))
	return idx, nil
}

func (o *Orchestrator) analyze(ctx context.Context, paths []string) (*analysis.Summary, error) {
	ctx, span := o.tracer.Start(ctx, "gate.analyze")
	defer span.End()

	summary, err := o.aggregator.Analyze(ctx, paths)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("blocking", summary.Blocking()),
		attribute.Int("total", summary.Total),
	)
	return summary, nil
}

// refine runs selection and planning, persisting each before moving on.
func (o *Orchestrator) refine(ctx context.Context, featureID string, res *Result, idx *registry.Index, summary *analysis.Summary, iter decision.Iteration) error {
	_, span := o.tracer.Start(ctx, "gate.refine")
	defer span.End()

	sel := o.selector.Select(summary, idx)
	res.Selection = sel
	if err := o.store.SaveSelection(featureID, sel); err != nil {
		span.RecordError(err)
		return err
	}
	if gaps := sel.Gaps(); len(gaps) > 0 {
		o.logger.Warn("coverage gaps in selection",
			zap.String("feature", featureID),
			zap.Strings("domains", domainsToStrings(gaps)),
		)
	}

	p := o.builder.Build(featureID, sel, iter, idx.ValidationAgents())
	res.Plan = p
	if err := o.store.SavePlan(featureID, p); err != nil {
		span.RecordError(err)
		return err
	}

	if o.taskCounter != nil {
		o.taskCounter.Add(ctx, int64(len(p.Tasks)))
	}
	span.SetAttributes(attribute.Int("tasks", len(p.Tasks)))
	return nil
}

func (o *Orchestrator) fail(span trace.Span, res *Result, err error) (*Result, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	o.logger.Error("gate run failed", zap.String("feature", res.FeatureID), zap.Error(err))
	res.Signal = ExitError
	return res, err
}

func domainsToStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

// ListReviewArtifacts gathers the review files under dir (.md and .txt),
// sorted by name. A missing directory yields an empty list: analyzers may
// simply not have run yet, which aggregates to a clean summary.
func ListReviewArtifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list review artifacts: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".md", ".txt":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
