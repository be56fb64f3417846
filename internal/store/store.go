package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qgate/internal/analysis"
	"github.com/fyrsmithlabs/qgate/internal/decision"
	"github.com/fyrsmithlabs/qgate/internal/plan"
	"github.com/fyrsmithlabs/qgate/internal/registry"
	"github.com/fyrsmithlabs/qgate/internal/selection"
)

// Artifact file names, per feature directory.
const (
	DiscoveryArtifact = "agent-discovery.json"
	AnalysisArtifact  = "issue-analysis.json"
	DecisionArtifact  = "refinement-decision.json"
	SelectionArtifact = "agent-selection.json"
	PlanArtifact      = "refinement-plan.json"
	IterationArtifact = "iteration.json"
)

// Errors for store operations.
var (
	ErrInvalidFeatureID = errors.New("invalid feature id: must be alphanumeric with hyphens/underscores/dots")
	ErrNotFound         = errors.New("artifact not found")
)

// featureIDPattern validates feature identifiers for filesystem safety.
var featureIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateFeatureID checks that a feature id is safe to use as a directory
// name: no separators, no traversal, bounded length.
func ValidateFeatureID(id string) error {
	if id == "" || len(id) > 255 {
		return ErrInvalidFeatureID
	}
	if !featureIDPattern.MatchString(id) {
		return ErrInvalidFeatureID
	}
	if id == "." || id == ".." || filepath.Clean(id) != id {
		return ErrInvalidFeatureID
	}
	return nil
}

// Store persists gate artifacts under root/<featureID>/.
type Store struct {
	root   string
	logger *zap.Logger
}

// New creates a store rooted at root, creating the directory if needed.
func New(root string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create artifact root: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the artifact root directory.
func (s *Store) Root() string { return s.root }

// FeatureDir returns the artifact directory for a feature.
func (s *Store) FeatureDir(featureID string) string {
	return filepath.Join(s.root, featureID)
}

// SaveDiscovery persists the agent registry index.
func (s *Store) SaveDiscovery(featureID string, idx *registry.Index) error {
	return s.save(featureID, DiscoveryArtifact, idx)
}

// LoadDiscovery reads a persisted registry index and rebuilds its lookups.
func (s *Store) LoadDiscovery(featureID string) (*registry.Index, error) {
	var idx registry.Index
	if err := s.load(featureID, DiscoveryArtifact, &idx); err != nil {
		return nil, err
	}
	idx.Rebuild()
	return &idx, nil
}

// SaveAnalysis persists the issue summary.
func (s *Store) SaveAnalysis(featureID string, summary *analysis.Summary) error {
	return s.save(featureID, AnalysisArtifact, summary)
}

// LoadAnalysis reads a persisted issue summary.
func (s *Store) LoadAnalysis(featureID string) (*analysis.Summary, error) {
	var summary analysis.Summary
	if err := s.load(featureID, AnalysisArtifact, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// SaveDecision persists the gate decision, iteration state included.
func (s *Store) SaveDecision(featureID string, d *decision.Decision) error {
	return s.save(featureID, DecisionArtifact, d)
}

// LoadDecision reads the last persisted decision.
func (s *Store) LoadDecision(featureID string) (*decision.Decision, error) {
	var d decision.Decision
	if err := s.load(featureID, DecisionArtifact, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// SaveSelection persists the agent selection.
func (s *Store) SaveSelection(featureID string, sel *selection.Selection) error {
	return s.save(featureID, SelectionArtifact, sel)
}

// LoadSelection reads a persisted agent selection.
func (s *Store) LoadSelection(featureID string) (*selection.Selection, error) {
	var sel selection.Selection
	if err := s.load(featureID, SelectionArtifact, &sel); err != nil {
		return nil, err
	}
	return &sel, nil
}

// SavePlan persists the refinement plan.
func (s *Store) SavePlan(featureID string, p *plan.Plan) error {
	return s.save(featureID, PlanArtifact, p)
}

// LoadPlan reads a persisted refinement plan.
func (s *Store) LoadPlan(featureID string) (*plan.Plan, error) {
	var p plan.Plan
	if err := s.load(featureID, PlanArtifact, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveIteration persists the refinement counter for the feature.
func (s *Store) SaveIteration(featureID string, iter decision.Iteration) error {
	return s.save(featureID, IterationArtifact, iter)
}

// LoadIteration reads the persisted counter; a feature with no counter yet
// starts fresh at zero with the given ceiling.
func (s *Store) LoadIteration(featureID string, maxIterations int) (decision.Iteration, error) {
	var iter decision.Iteration
	err := s.load(featureID, IterationArtifact, &iter)
	if errors.Is(err, ErrNotFound) {
		return decision.NewIteration(maxIterations), nil
	}
	if err != nil {
		return decision.Iteration{}, err
	}
	if iter.Max <= 0 {
		iter.Max = maxIterations
	}
	return iter, nil
}

// save marshals v and writes it atomically under the feature directory.
func (s *Store) save(featureID, name string, v any) error {
	if err := ValidateFeatureID(featureID); err != nil {
		return err
	}

	dir := s.FeatureDir(featureID)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create feature directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	// Write atomically so a crash mid-write never leaves a torn artifact.
	path := filepath.Join(dir, name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", name, err)
	}

	s.logger.Debug("persisted artifact",
		zap.String("feature", featureID),
		zap.String("artifact", name),
	)
	return nil
}

func (s *Store) load(featureID, name string, v any) error {
	if err := ValidateFeatureID(featureID); err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(s.FeatureDir(featureID), name))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, featureID, name)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}
