package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/qgate/internal/agent"
)

// Errors for registry discovery.
var (
	// ErrStoreUnreadable is the fatal discovery error: the descriptor store
	// itself cannot be read. Individual bad descriptors never cause it.
	ErrStoreUnreadable = errors.New("descriptor store unreadable")

	// ErrDuplicateAgent marks a descriptor whose name collides with an
	// already-loaded agent. The duplicate is skipped, not fatal.
	ErrDuplicateAgent = errors.New("duplicate agent name")
)

// Index holds the discovered agents and the domain/capability lookups built
// from them. Load order is preserved: ties during selection are broken by
// discovery order, so the index must be deterministic for a given store.
type Index struct {
	// Agents in discovery (file name) order.
	Agents []agent.Descriptor `json:"agents"`

	// Warnings collected for descriptors that were skipped.
	Warnings []string `json:"warnings,omitempty"`

	byDomain     map[agent.Domain][]int
	byCapability map[string][]int
}

// Discover walks the descriptor store at dir, parses each YAML descriptor,
// and builds the index. Files that fail to parse or validate are skipped with
// a warning. Returns ErrStoreUnreadable only if the store itself is
// unreadable; an empty store yields an empty, valid index.
func Discover(ctx context.Context, dir string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreUnreadable, dir, err)
	}

	idx := newIndex()

	// os.ReadDir returns entries sorted by name, which fixes load order.
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !isDescriptorFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		desc, err := parseDescriptor(path)
		if err != nil {
			warning := fmt.Sprintf("skipped %s: %v", entry.Name(), err)
			idx.Warnings = append(idx.Warnings, warning)
			logger.Warn("skipped malformed descriptor",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}

		if err := idx.add(desc); err != nil {
			idx.Warnings = append(idx.Warnings, fmt.Sprintf("skipped %s: %v", entry.Name(), err))
			logger.Warn("skipped descriptor", zap.String("path", path), zap.Error(err))
		}
	}

	logger.Info("agent discovery complete",
		zap.String("store", dir),
		zap.Int("agents", len(idx.Agents)),
		zap.Int("skipped", len(idx.Warnings)),
	)

	return idx, nil
}

func newIndex() *Index {
	return &Index{
		byDomain:     make(map[agent.Domain][]int),
		byCapability: make(map[string][]int),
	}
}

func isDescriptorFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func parseDescriptor(path string) (agent.Descriptor, error) {
	var desc agent.Descriptor

	data, err := os.ReadFile(path)
	if err != nil {
		return desc, fmt.Errorf("read: %w", err)
	}
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return desc, fmt.Errorf("parse: %w", err)
	}
	if err := desc.Validate(); err != nil {
		return desc, err
	}

	// Normalize free-form domain tags onto the known vocabulary.
	for i, d := range desc.Domains {
		desc.Domains[i] = agent.ParseDomain(string(d))
	}

	return desc, nil
}

// add appends a descriptor and updates the lookups.
func (idx *Index) add(desc agent.Descriptor) error {
	for _, existing := range idx.Agents {
		if existing.Name == desc.Name {
			return fmt.Errorf("%w: %s", ErrDuplicateAgent, desc.Name)
		}
	}

	pos := len(idx.Agents)
	idx.Agents = append(idx.Agents, desc)

	for _, d := range desc.Domains {
		idx.byDomain[d] = append(idx.byDomain[d], pos)
	}
	for _, c := range desc.Capabilities {
		idx.byCapability[c] = append(idx.byCapability[c], pos)
	}
	return nil
}

// Len returns the number of discovered agents.
func (idx *Index) Len() int {
	return len(idx.Agents)
}

// ByDomain returns the agents covering the domain, in discovery order.
func (idx *Index) ByDomain(d agent.Domain) []agent.Descriptor {
	return idx.resolve(idx.byDomain[d])
}

// ByCapability returns the agents carrying the exact capability tag,
// in discovery order.
func (idx *Index) ByCapability(capability string) []agent.Descriptor {
	return idx.resolve(idx.byCapability[capability])
}

// ValidationAgents returns the validation-capable subset in discovery order.
func (idx *Index) ValidationAgents() []agent.Descriptor {
	var out []agent.Descriptor
	for _, a := range idx.Agents {
		if a.ValidationCapable {
			out = append(out, a)
		}
	}
	return out
}

// Domains returns the sorted set of domains with at least one agent.
func (idx *Index) Domains() []agent.Domain {
	out := make([]agent.Domain, 0, len(idx.byDomain))
	for d := range idx.byDomain {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (idx *Index) resolve(positions []int) []agent.Descriptor {
	if len(positions) == 0 {
		return nil
	}
	out := make([]agent.Descriptor, 0, len(positions))
	for _, p := range positions {
		out = append(out, idx.Agents[p])
	}
	return out
}

// Rebuild reconstructs the lookups after the agent list was populated
// externally, e.g. when an index is loaded back from a persisted artifact.
func (idx *Index) Rebuild() {
	idx.byDomain = make(map[agent.Domain][]int)
	idx.byCapability = make(map[string][]int)
	for pos, desc := range idx.Agents {
		for _, d := range desc.Domains {
			idx.byDomain[d] = append(idx.byDomain[d], pos)
		}
		for _, c := range desc.Capabilities {
			idx.byCapability[c] = append(idx.byCapability[c], pos)
		}
	}
}
