package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/qgate/internal/agent"
	"github.com/fyrsmithlabs/qgate/internal/decision"
	"github.com/fyrsmithlabs/qgate/internal/selection"
)

var (
	goBackend = agent.Descriptor{
		Name:              "go-backend-fixer",
		Kind:              agent.KindDevelopment,
		Domains:           []agent.Domain{agent.DomainBackend},
		RefinementCapable: true,
	}
	validator = agent.Descriptor{
		Name:              "verifier",
		Kind:              agent.KindValidation,
		ValidationCapable: true,
	}
)

func selectionWith(matches ...selection.Match) *selection.Selection {
	sel := &selection.Selection{Coverage: make(map[agent.Domain]bool)}
	for _, m := range matches {
		sel.Selected = append(sel.Selected, m)
		sel.Coverage[m.Domain] = true
	}
	return sel
}

func TestBuild_OneTaskPerMatch(t *testing.T) {
	sel := selectionWith(
		selection.Match{Agent: goBackend, Domain: agent.DomainBackend, Rationale: "covers backend"},
	)
	b := NewBuilder(t.TempDir(), nil)

	p := b.Build("feat-auth", sel, decision.Iteration{Current: 1, Max: 3}, []agent.Descriptor{validator})

	require.Len(t, p.Tasks, 1)
	task := p.Tasks[0]
	assert.Equal(t, "go-backend-fixer", task.AgentName)
	assert.Equal(t, agent.DomainBackend, task.Domain)
	assert.Equal(t, PriorityHigh, task.Priority)
	assert.Equal(t, "covers backend", task.Rationale)
	assert.Equal(t, 1, p.Iteration)
	assert.Equal(t, "feat-auth", p.FeatureID)
	require.Len(t, p.ValidationAgents, 1)
	assert.Equal(t, "verifier", p.ValidationAgents[0].Name)
}

func TestBuild_FixedSuccessCriteria(t *testing.T) {
	b := NewBuilder(t.TempDir(), nil)
	p1 := b.Build("f", selectionWith(), decision.Iteration{Current: 1, Max: 3}, nil)
	p2 := b.Build("f", selectionWith(), decision.Iteration{Current: 2, Max: 3}, nil)

	require.Len(t, p1.SuccessCriteria, 4)
	assert.Equal(t, p1.SuccessCriteria, p2.SuccessCriteria, "criteria are the same every run")
}

func TestBuild_WorkspaceUniqueness(t *testing.T) {
	frontendAgent := agent.Descriptor{
		Name:              "generalist",
		Kind:              agent.KindDevelopment,
		RefinementCapable: true,
	}
	// Same agent on two domains in one iteration, plus repeated iterations:
	// every workspace must be distinct.
	sel := selectionWith(
		selection.Match{Agent: frontendAgent, Domain: agent.DomainBackend},
		selection.Match{Agent: frontendAgent, Domain: agent.DomainFrontend},
	)

	b := NewBuilder(t.TempDir(), nil)
	seen := make(map[string]bool)
	for iteration := 1; iteration <= 3; iteration++ {
		p := b.Build("feat-x", sel, decision.Iteration{Current: iteration, Max: 3}, nil)
		for _, task := range p.Tasks {
			assert.False(t, seen[task.Workspace], "workspace reused: %s", task.Workspace)
			seen[task.Workspace] = true
		}
	}
	assert.Len(t, seen, 6)
}

func TestBuild_WorkspacesScopedByFeature(t *testing.T) {
	sel := selectionWith(selection.Match{Agent: goBackend, Domain: agent.DomainBackend})
	b := NewBuilder("/work", nil)

	p1 := b.Build("feat-a", sel, decision.Iteration{Current: 1, Max: 3}, nil)
	p2 := b.Build("feat-b", sel, decision.Iteration{Current: 1, Max: 3}, nil)

	assert.NotEqual(t, p1.Tasks[0].Workspace, p2.Tasks[0].Workspace)
	assert.Contains(t, p1.Tasks[0].Workspace, "feat-a")
}

func TestBuild_EmptySelectionYieldsNoTasks(t *testing.T) {
	b := NewBuilder(t.TempDir(), nil)
	p := b.Build("feat-x", selectionWith(), decision.Iteration{Current: 1, Max: 3}, nil)

	assert.Empty(t, p.Tasks)
	assert.Len(t, p.SuccessCriteria, 4, "criteria present even with no tasks")
}
