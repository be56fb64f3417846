package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/qgate/internal/agent"
	"github.com/fyrsmithlabs/qgate/internal/analysis"
)

func summaryWith(blocking, warning, info int) *analysis.Summary {
	return &analysis.Summary{
		Counts: map[agent.Severity]int{
			agent.SeverityBlocking: blocking,
			agent.SeverityWarning:  warning,
			agent.SeverityInfo:     info,
		},
		Total: blocking + warning + info,
	}
}

func TestEvaluate_Transitions(t *testing.T) {
	tests := []struct {
		name        string
		summary     *analysis.Summary
		iter        Iteration
		wantOutcome Outcome
		wantCurrent int
	}{
		{
			name:        "warnings alone never block",
			summary:     summaryWith(0, 5, 0),
			iter:        Iteration{Current: 0, Max: 3},
			wantOutcome: OutcomeProceed,
			wantCurrent: 0,
		},
		{
			name:        "blocking with budget refines",
			summary:     summaryWith(2, 0, 0),
			iter:        Iteration{Current: 0, Max: 3},
			wantOutcome: OutcomeRefinementNeeded,
			wantCurrent: 1,
		},
		{
			name:        "blocking at ceiling escalates",
			summary:     summaryWith(1, 0, 0),
			iter:        Iteration{Current: 3, Max: 3},
			wantOutcome: OutcomeEscalationNeeded,
			wantCurrent: 3,
		},
		{
			name:        "clean summary proceeds even when exhausted",
			summary:     summaryWith(0, 0, 2),
			iter:        Iteration{Current: 3, Max: 3},
			wantOutcome: OutcomeProceed,
			wantCurrent: 3,
		},
		{
			name:        "last budget slot still refines",
			summary:     summaryWith(4, 1, 0),
			iter:        Iteration{Current: 2, Max: 3},
			wantOutcome: OutcomeRefinementNeeded,
			wantCurrent: 3,
		},
	}

	engine := NewEngine(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := engine.Evaluate(tt.summary, tt.iter)
			assert.Equal(t, tt.wantOutcome, d.Outcome)
			assert.Equal(t, tt.wantCurrent, d.Iteration.Current)
			assert.LessOrEqual(t, d.Iteration.Current, d.Iteration.Max)
			assert.NotEmpty(t, d.Reason)
			assert.NotEmpty(t, d.NextActions)
		})
	}
}

func TestEvaluate_ProceedIdempotentUnderIterationState(t *testing.T) {
	engine := NewEngine(nil)
	clean := summaryWith(0, 3, 1)

	for current := 0; current <= 3; current++ {
		d := engine.Evaluate(clean, Iteration{Current: current, Max: 3})
		assert.Equal(t, OutcomeProceed, d.Outcome, "iteration %d", current)
		assert.Equal(t, current, d.Iteration.Current, "proceed never mutates the counter")
	}
}

func TestEvaluate_MonotonicIterationUntilEscalation(t *testing.T) {
	engine := NewEngine(nil)
	stuck := summaryWith(1, 0, 0)
	iter := NewIteration(3)

	var outcomes []Outcome
	for i := 0; i < 5; i++ {
		d := engine.Evaluate(stuck, iter)
		outcomes = append(outcomes, d.Outcome)
		if d.Outcome == OutcomeRefinementNeeded {
			require.Equal(t, iter.Current+1, d.Iteration.Current, "refine increments exactly once")
		} else {
			require.Equal(t, iter.Current, d.Iteration.Current)
		}
		iter = d.Iteration
	}

	// Bounded retries: escalated by invocation max+1 and stays there.
	assert.Equal(t, []Outcome{
		OutcomeRefinementNeeded,
		OutcomeRefinementNeeded,
		OutcomeRefinementNeeded,
		OutcomeEscalationNeeded,
		OutcomeEscalationNeeded,
	}, outcomes)
	assert.Equal(t, 3, iter.Current)
}

func TestEvaluate_NextActionsFixedPerOutcome(t *testing.T) {
	engine := NewEngine(nil)

	proceed := engine.Evaluate(summaryWith(0, 0, 0), NewIteration(3))
	assert.Equal(t, []string{"record-decision", "advance-pipeline"}, proceed.NextActions)

	refine := engine.Evaluate(summaryWith(1, 0, 0), NewIteration(3))
	assert.Equal(t,
		[]string{"select-agents", "build-refinement-plan", "dispatch-tasks", "re-run-gate"},
		refine.NextActions,
	)

	escalate := engine.Evaluate(summaryWith(1, 0, 0), Iteration{Current: 3, Max: 3})
	assert.Equal(t,
		[]string{"halt-automation", "surface-artifacts", "notify-human-reviewer"},
		escalate.NextActions,
	)
}

func TestNewIteration_DefaultCeiling(t *testing.T) {
	assert.Equal(t, Iteration{Current: 0, Max: DefaultMaxIterations}, NewIteration(0))
	assert.Equal(t, Iteration{Current: 0, Max: 5}, NewIteration(5))
}

func TestEvaluate_ZeroMaxFallsBackToDefault(t *testing.T) {
	d := NewEngine(nil).Evaluate(summaryWith(1, 0, 0), Iteration{})
	assert.Equal(t, OutcomeRefinementNeeded, d.Outcome)
	assert.Equal(t, DefaultMaxIterations, d.Iteration.Max)
}
