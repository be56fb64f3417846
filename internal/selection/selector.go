package selection

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qgate/internal/agent"
	"github.com/fyrsmithlabs/qgate/internal/analysis"
	"github.com/fyrsmithlabs/qgate/internal/registry"
)

// Match binds one selected agent to the domain it was selected for.
type Match struct {
	Agent     agent.Descriptor `json:"agent"`
	Domain    agent.Domain     `json:"domain"`
	Rationale string           `json:"rationale"`
}

// Selection is the result of matching an issue summary against the registry.
type Selection struct {
	// Selected lists the matches in domain order.
	Selected []Match `json:"selected"`

	// Coverage has exactly one key per affected domain; false marks a gap.
	Coverage map[agent.Domain]bool `json:"coverage"`
}

// Gaps returns the sorted domains that have findings but no matching agent.
func (s *Selection) Gaps() []agent.Domain {
	var gaps []agent.Domain
	for d, covered := range s.Coverage {
		if !covered {
			gaps = append(gaps, d)
		}
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	return gaps
}

// Selector matches affected domains to refinement-capable agents.
type Selector struct {
	logger *zap.Logger
}

// NewSelector creates a selector. A nil logger disables logging.
func NewSelector(logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{logger: logger}
}

// Select walks the affected domains in alphabetical order and picks, per
// domain, the first registry agent (in load order) whose domains contain it
// and whose capabilities intersect the detected technology stack when one was
// detected. Domains without a candidate are recorded as uncovered and skipped.
func (s *Selector) Select(summary *analysis.Summary, idx *registry.Index) *Selection {
	sel := &Selection{Coverage: make(map[agent.Domain]bool)}

	domains := append([]agent.Domain(nil), summary.AffectedDomains...)
	sort.Slice(domains, func(i, j int) bool { return domains[i] < domains[j] })

	for _, domain := range domains {
		match, ok := s.pick(domain, summary.TechnologyStack, idx)
		sel.Coverage[domain] = ok
		if !ok {
			s.logger.Warn("coverage gap: no agent for domain", zap.String("domain", string(domain)))
			continue
		}
		sel.Selected = append(sel.Selected, match)
		s.logger.Info("selected agent",
			zap.String("domain", string(domain)),
			zap.String("agent", match.Agent.Name),
		)
	}

	return sel
}

// pick returns the first candidate in load order that covers the domain and
// can handle the technology stack.
func (s *Selector) pick(domain agent.Domain, stack []string, idx *registry.Index) (Match, bool) {
	for _, candidate := range idx.ByDomain(domain) {
		if !candidate.RefinementCapable {
			continue
		}
		if !candidate.SupportsAnyTechnology(stack) {
			continue
		}
		return Match{
			Agent:     candidate,
			Domain:    domain,
			Rationale: rationale(candidate, domain, stack),
		}, true
	}
	return Match{}, false
}

func rationale(d agent.Descriptor, domain agent.Domain, stack []string) string {
	if len(stack) == 0 {
		return fmt.Sprintf("covers domain %q", domain)
	}
	return fmt.Sprintf("covers domain %q with technology overlap on {%s}",
		domain, strings.Join(stack, ", "))
}
