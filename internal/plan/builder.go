package plan

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qgate/internal/agent"
	"github.com/fyrsmithlabs/qgate/internal/decision"
	"github.com/fyrsmithlabs/qgate/internal/selection"
)

// PriorityHigh is the only priority level currently emitted. The single fixed
// level mirrors the upstream pipeline, which has no priority differentiation
// downstream.
const PriorityHigh = "high"

// SuccessCriteria is the fixed checklist the caller must verify before
// re-running the gate. It is identical for every plan.
func SuccessCriteria() []string {
	return []string{
		"all blocking issues resolved or explicitly documented",
		"no new blocking issues introduced",
		"validation agents confirm resolution",
		"existing functionality preserved",
	}
}

// Task is one dispatchable unit of refinement work.
type Task struct {
	// AgentName references the selected agent.
	AgentName string `json:"agent_name"`

	// Domain is the functional area the agent should fix.
	Domain agent.Domain `json:"domain"`

	// Workspace is an isolated path unique to (feature, iteration, agent,
	// domain). No two tasks, even across iterations, share a workspace.
	Workspace string `json:"workspace"`

	// Priority is always PriorityHigh.
	Priority string `json:"priority"`

	// Rationale carries the selection justification for the dispatcher.
	Rationale string `json:"rationale"`
}

// Plan is the dispatchable output of one refinement decision.
type Plan struct {
	FeatureID string `json:"feature_id"`

	// Iteration is the post-increment refinement counter.
	Iteration int `json:"iteration"`

	Tasks []Task `json:"tasks"`

	// ValidationAgents are invoked by the caller after tasks complete.
	ValidationAgents []agent.Descriptor `json:"validation_agents,omitempty"`

	SuccessCriteria []string `json:"success_criteria"`

	CreatedAt time.Time `json:"created_at"`
}

// Builder constructs refinement plans rooted at a workspace directory.
type Builder struct {
	workspaceRoot string
	logger        *zap.Logger
}

// NewBuilder creates a builder. Workspaces are created under root.
// A nil logger disables logging.
func NewBuilder(root string, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{workspaceRoot: root, logger: logger}
}

// Build emits one task per selection match, plus the validation agent list
// and the fixed success criteria. Coverage gaps in the selection simply
// produce no task; the gap itself is surfaced by the persisted selection.
func (b *Builder) Build(featureID string, sel *selection.Selection, iter decision.Iteration, validators []agent.Descriptor) *Plan {
	p := &Plan{
		FeatureID:        featureID,
		Iteration:        iter.Current,
		ValidationAgents: validators,
		SuccessCriteria:  SuccessCriteria(),
		CreatedAt:        time.Now().UTC(),
	}

	for _, match := range sel.Selected {
		p.Tasks = append(p.Tasks, Task{
			AgentName: match.Agent.Name,
			Domain:    match.Domain,
			Workspace: b.workspace(featureID, iter.Current, match.Agent.Name, match.Domain),
			Priority:  PriorityHigh,
			Rationale: match.Rationale,
		})
	}

	b.logger.Info("refinement plan built",
		zap.String("feature", featureID),
		zap.Int("iteration", p.Iteration),
		zap.Int("tasks", len(p.Tasks)),
		zap.Int("validation_agents", len(p.ValidationAgents)),
	)

	return p
}

// workspace namespaces a task's working directory. The domain component
// keeps an agent selected for two domains in the same iteration from
// colliding with itself.
func (b *Builder) workspace(featureID string, iteration int, agentName string, domain agent.Domain) string {
	return filepath.Join(
		b.workspaceRoot,
		featureID,
		fmt.Sprintf("iteration-%d", iteration),
		fmt.Sprintf("%s-%s", agentName, domain),
	)
}
