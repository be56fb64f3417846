package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/qgate/internal/agent"
	"github.com/fyrsmithlabs/qgate/internal/analysis"
	"github.com/fyrsmithlabs/qgate/internal/decision"
	"github.com/fyrsmithlabs/qgate/internal/plan"
	"github.com/fyrsmithlabs/qgate/internal/registry"
	"github.com/fyrsmithlabs/qgate/internal/selection"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestValidateFeatureID(t *testing.T) {
	valid := []string{"feat-auth", "feature_1", "v1.2-login", "X"}
	for _, id := range valid {
		assert.NoError(t, ValidateFeatureID(id), "id %q", id)
	}

	invalid := []string{"", ".", "..", "../escape", "a/b", `a\b`, "-leading-dash"}
	for _, id := range invalid {
		assert.ErrorIs(t, ValidateFeatureID(id), ErrInvalidFeatureID, "id %q", id)
	}
}

func TestIterationRoundTrip(t *testing.T) {
	s := newStore(t)

	// A fresh feature starts at zero with the configured ceiling.
	iter, err := s.LoadIteration("feat-auth", 3)
	require.NoError(t, err)
	assert.Equal(t, decision.Iteration{Current: 0, Max: 3}, iter)

	iter.Current = 2
	require.NoError(t, s.SaveIteration("feat-auth", iter))

	loaded, err := s.LoadIteration("feat-auth", 3)
	require.NoError(t, err)
	assert.Equal(t, iter, loaded)
}

func TestDecisionRoundTrip(t *testing.T) {
	s := newStore(t)
	d := &decision.Decision{
		Outcome:     decision.OutcomeRefinementNeeded,
		Reason:      "2 blocking issues",
		NextActions: []string{"select-agents"},
		Iteration:   decision.Iteration{Current: 1, Max: 3},
	}

	require.NoError(t, s.SaveDecision("feat-auth", d))
	loaded, err := s.LoadDecision("feat-auth")
	require.NoError(t, err)
	assert.Equal(t, d, loaded)
}

func TestDiscoveryRoundTripRebuildsIndexes(t *testing.T) {
	s := newStore(t)
	idx := &registry.Index{
		Agents: []agent.Descriptor{
			{
				Name:              "go-backend-fixer",
				Kind:              agent.KindDevelopment,
				Domains:           []agent.Domain{agent.DomainBackend},
				RefinementCapable: true,
			},
		},
	}

	require.NoError(t, s.SaveDiscovery("feat-auth", idx))
	loaded, err := s.LoadDiscovery("feat-auth")
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	assert.Len(t, loaded.ByDomain(agent.DomainBackend), 1, "lookups rebuilt after load")
}

func TestAnalysisAndSelectionAndPlanRoundTrip(t *testing.T) {
	s := newStore(t)

	summary := &analysis.Summary{
		Counts: map[agent.Severity]int{
			agent.SeverityBlocking: 1,
			agent.SeverityWarning:  0,
			agent.SeverityInfo:     0,
		},
		Total:           1,
		AffectedDomains: []agent.Domain{agent.DomainBackend},
	}
	require.NoError(t, s.SaveAnalysis("f", summary))
	gotSummary, err := s.LoadAnalysis("f")
	require.NoError(t, err)
	assert.Equal(t, summary, gotSummary)

	sel := &selection.Selection{
		Coverage: map[agent.Domain]bool{agent.DomainBackend: false},
	}
	require.NoError(t, s.SaveSelection("f", sel))
	gotSel, err := s.LoadSelection("f")
	require.NoError(t, err)
	assert.Equal(t, sel, gotSel)

	p := &plan.Plan{FeatureID: "f", Iteration: 1, SuccessCriteria: plan.SuccessCriteria()}
	require.NoError(t, s.SavePlan("f", p))
	gotPlan, err := s.LoadPlan("f")
	require.NoError(t, err)
	assert.Equal(t, p.SuccessCriteria, gotPlan.SuccessCriteria)
}

func TestLoadMissingArtifact(t *testing.T) {
	s := newStore(t)
	_, err := s.LoadDecision("never-ran")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRejectsUnsafeFeatureID(t *testing.T) {
	s := newStore(t)
	err := s.SaveIteration("../escape", decision.NewIteration(3))
	assert.ErrorIs(t, err, ErrInvalidFeatureID)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.SaveIteration("feat", decision.NewIteration(3)))

	entries, err := os.ReadDir(s.FeatureDir("feat"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
	_, err = os.Stat(filepath.Join(s.FeatureDir("feat"), IterationArtifact))
	assert.NoError(t, err)
}
