package decision

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qgate/internal/agent"
	"github.com/fyrsmithlabs/qgate/internal/analysis"
)

// Outcome is the result variant of one gate evaluation.
type Outcome string

const (
	OutcomeProceed          Outcome = "proceed"
	OutcomeRefinementNeeded Outcome = "refinement_needed"
	OutcomeEscalationNeeded Outcome = "escalation_needed"
)

// DefaultMaxIterations bounds the refine loop when no ceiling is configured.
const DefaultMaxIterations = 3

// Iteration is the per-feature refinement counter, persisted by the driver
// across gate invocations. Current never exceeds Max after a decision and is
// incremented exactly once per refine outcome, only by the engine.
type Iteration struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// NewIteration returns a zero iteration with the given ceiling,
// falling back to DefaultMaxIterations when max is not positive.
func NewIteration(max int) Iteration {
	if max <= 0 {
		max = DefaultMaxIterations
	}
	return Iteration{Current: 0, Max: max}
}

// Exhausted reports whether the refinement budget is used up.
func (it Iteration) Exhausted() bool { return it.Current >= it.Max }

// Decision is the outcome of one engine evaluation, terminal for the current
// invocation unless the outcome is refinement needed.
type Decision struct {
	// Outcome is the gate verdict.
	Outcome Outcome `json:"outcome"`

	// Reason is a human-readable justification.
	Reason string `json:"reason"`

	// NextActions are ordered follow-up action tags, fixed per outcome.
	NextActions []string `json:"next_actions"`

	// Iteration is the counter state after the decision.
	Iteration Iteration `json:"iteration"`

	// DecidedAt records when the evaluation happened.
	DecidedAt time.Time `json:"decided_at"`
}

// nextActions is the fixed follow-up list per outcome.
var nextActions = map[Outcome][]string{
	OutcomeProceed: {
		"record-decision",
		"advance-pipeline",
	},
	OutcomeRefinementNeeded: {
		"select-agents",
		"build-refinement-plan",
		"dispatch-tasks",
		"re-run-gate",
	},
	OutcomeEscalationNeeded: {
		"halt-automation",
		"surface-artifacts",
		"notify-human-reviewer",
	},
}

// Engine evaluates gate decisions. It is pure decision logic over
// already-validated inputs and cannot fail at runtime.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an engine. A nil logger disables logging.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Evaluate applies the transition rule once:
//
//   - no blocking issues: proceed, regardless of iteration state
//   - blocking issues and budget left: increment the counter, refine
//   - blocking issues and budget exhausted: escalate
//
// The returned decision carries the updated iteration; the caller persists it.
func (e *Engine) Evaluate(summary *analysis.Summary, iter Iteration) Decision {
	if iter.Max <= 0 {
		iter.Max = DefaultMaxIterations
	}

	blocking := summary.Blocking()
	warnings := summary.Counts[agent.SeverityWarning]

	var d Decision
	switch {
	case blocking == 0:
		d = Decision{
			Outcome:   OutcomeProceed,
			Reason:    fmt.Sprintf("no blocking issues (%d warnings are advisory only)", warnings),
			Iteration: iter,
		}
	case !iter.Exhausted():
		iter.Current++
		d = Decision{
			Outcome: OutcomeRefinementNeeded,
			Reason: fmt.Sprintf("%d blocking issues, starting refinement iteration %d of %d",
				blocking, iter.Current, iter.Max),
			Iteration: iter,
		}
	default:
		d = Decision{
			Outcome: OutcomeEscalationNeeded,
			Reason: fmt.Sprintf("%d blocking issues persist after %d of %d refinement iterations",
				blocking, iter.Current, iter.Max),
			Iteration: iter,
		}
	}

	d.NextActions = nextActions[d.Outcome]
	d.DecidedAt = time.Now().UTC()

	e.logger.Info("gate decision",
		zap.String("outcome", string(d.Outcome)),
		zap.Int("blocking", blocking),
		zap.Int("iteration", d.Iteration.Current),
		zap.Int("max_iterations", d.Iteration.Max),
	)

	return d
}
