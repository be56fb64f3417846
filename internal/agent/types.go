package agent

import (
	"errors"
	"fmt"
	"strings"
)

// Domain is a coarse functional area used to route findings to capable agents.
type Domain string

const (
	DomainBackend        Domain = "backend"
	DomainFrontend       Domain = "frontend"
	DomainSecurity       Domain = "security"
	DomainPerformance    Domain = "performance"
	DomainInfrastructure Domain = "infrastructure"
	DomainDocumentation  Domain = "documentation"

	// DomainUnknown covers tags outside the known vocabulary. Unknown domains
	// still flow through selection (they simply never match an agent).
	DomainUnknown Domain = "unknown"
)

// KnownDomains returns the closed domain vocabulary in alphabetical order.
func KnownDomains() []Domain {
	return []Domain{
		DomainBackend,
		DomainDocumentation,
		DomainFrontend,
		DomainInfrastructure,
		DomainPerformance,
		DomainSecurity,
	}
}

// ParseDomain maps a free-form tag onto the known vocabulary.
func ParseDomain(s string) Domain {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range KnownDomains() {
		if d == known {
			return known
		}
	}
	return DomainUnknown
}

// Kind distinguishes what role an agent plays in the pipeline.
type Kind string

const (
	KindQuality     Kind = "quality"
	KindDevelopment Kind = "development"
	KindValidation  Kind = "validation"
)

// ValidKind reports whether k is part of the kind vocabulary.
func ValidKind(k Kind) bool {
	switch k {
	case KindQuality, KindDevelopment, KindValidation:
		return true
	}
	return false
}

// Severity is the three-level finding vocabulary. Only SeverityBlocking
// participates in the refine/escalate decision; warning and info are advisory.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Severities returns all severities ordered from most to least severe.
func Severities() []Severity {
	return []Severity{SeverityBlocking, SeverityWarning, SeverityInfo}
}

// Marker returns the literal tag analyzers emit for this severity,
// e.g. "[BLOCKING]". Markers are case-sensitive.
func (s Severity) Marker() string {
	return "[" + strings.ToUpper(string(s)) + "]"
}

// Descriptor describes one available specialized worker. Descriptors are
// loaded once per run from the descriptor store and never mutated.
type Descriptor struct {
	// Name uniquely identifies the agent within the registry.
	Name string `yaml:"name" json:"name"`

	// Kind is one of quality, development, validation.
	Kind Kind `yaml:"kind" json:"kind"`

	// Capabilities are free-form remediation skill tags,
	// e.g. "golang-development", "security-remediation".
	Capabilities []string `yaml:"capabilities" json:"capabilities,omitempty"`

	// Domains are the functional areas this agent is relevant to.
	Domains []Domain `yaml:"domains" json:"domains,omitempty"`

	// ValidationCapable marks agents that can verify fixes.
	ValidationCapable bool `yaml:"validation_capable" json:"validation_capable"`

	// RefinementCapable marks agents that can produce fixes.
	RefinementCapable bool `yaml:"refinement_capable" json:"refinement_capable"`
}

// Errors for descriptor validation.
var (
	ErrMissingName = errors.New("descriptor missing name")
	ErrInvalidKind = errors.New("descriptor kind must be quality, development, or validation")
)

// Validate checks the required descriptor fields.
func (d *Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrMissingName
	}
	if !ValidKind(d.Kind) {
		return fmt.Errorf("%w: %q", ErrInvalidKind, d.Kind)
	}
	return nil
}

// HasDomain reports whether the agent covers the given domain.
func (d *Descriptor) HasDomain(dom Domain) bool {
	for _, have := range d.Domains {
		if have == dom {
			return true
		}
	}
	return false
}

// technologyAliases maps capability tokens onto canonical technology tags.
var technologyAliases = map[string]string{
	"golang":     "go",
	"go":         "go",
	"react":      "react",
	"typescript": "typescript",
	"ts":         "typescript",
	"python":     "python",
	"rust":       "rust",
	"java":       "java",
}

// TechnologyTags derives the canonical technology tags an agent can work
// with from its capability tags. Capability tags are tokenized on hyphens
// and matched exactly against the alias table, never by substring.
func (d *Descriptor) TechnologyTags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, capTag := range d.Capabilities {
		for _, token := range strings.Split(strings.ToLower(capTag), "-") {
			if canonical, ok := technologyAliases[token]; ok && !seen[canonical] {
				seen[canonical] = true
				tags = append(tags, canonical)
			}
		}
	}
	return tags
}

// SupportsAnyTechnology reports whether the agent's derived technology tags
// intersect the given set. An agent with no derived tags is treated as
// technology-neutral and matches any stack.
func (d *Descriptor) SupportsAnyTechnology(stack []string) bool {
	if len(stack) == 0 {
		return true
	}
	tags := d.TechnologyTags()
	if len(tags) == 0 {
		return true
	}
	for _, want := range stack {
		for _, have := range tags {
			if want == have {
				return true
			}
		}
	}
	return false
}
