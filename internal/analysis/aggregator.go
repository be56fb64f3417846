package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qgate/internal/agent"
)

// Summary is the normalized aggregate of all findings for one gate run.
// It is created fresh each run and immutable once produced.
type Summary struct {
	// Counts maps severity to the number of findings observed.
	Counts map[agent.Severity]int `json:"counts"`

	// Total is the sum of all per-severity counts.
	Total int `json:"total"`

	// AffectedDomains is the sorted set of domains detected from the
	// artifacts that contained findings.
	AffectedDomains []agent.Domain `json:"affected_domains,omitempty"`

	// TechnologyStack is the sorted set of technology tags detected,
	// used to narrow agent matching downstream.
	TechnologyStack []string `json:"technology_stack,omitempty"`

	// Warnings lists artifacts that were skipped as unreadable.
	Warnings []string `json:"warnings,omitempty"`
}

// Blocking returns the blocking finding count.
func (s *Summary) Blocking() int { return s.Counts[agent.SeverityBlocking] }

// Clean reports whether the summary contains no findings at all.
func (s *Summary) Clean() bool { return s.Total == 0 }

// domainHints maps name substrings to domains. Matching artifact names is
// inherently approximate; misclassified artifacts surface as coverage gaps
// rather than failures.
var domainHints = []struct {
	substr string
	domain agent.Domain
}{
	{"security-review", agent.DomainSecurity},
	{"security", agent.DomainSecurity},
	{"backend", agent.DomainBackend},
	{"api", agent.DomainBackend},
	{"server", agent.DomainBackend},
	{"frontend", agent.DomainFrontend},
	{"react", agent.DomainFrontend},
	{"ui", agent.DomainFrontend},
	{"performance", agent.DomainPerformance},
	{"perf", agent.DomainPerformance},
	{"infra", agent.DomainInfrastructure},
	{"deploy", agent.DomainInfrastructure},
	{"docs", agent.DomainDocumentation},
}

// technologyHints maps content markers to canonical technology tags.
// Markers are matched case-insensitively against artifact content.
var technologyHints = map[string][]string{
	"go":         {"golang", ".go:", "go.mod"},
	"react":      {"react", ".tsx"},
	"typescript": {"typescript", ".ts:"},
	"python":     {"python", ".py:"},
	"rust":       {"rust", ".rs:", "cargo.toml"},
}

// Aggregator scans review artifacts and produces issue summaries.
type Aggregator struct {
	logger *zap.Logger
}

// NewAggregator creates an aggregator. A nil logger disables logging.
func NewAggregator(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{logger: logger}
}

// Analyze reads each artifact, counts the literal severity markers
// ([BLOCKING], [WARNING], [INFO], case-sensitive), and folds domain and
// technology detection into the summary. Missing or unreadable artifacts are
// skipped with a warning. An empty artifact set yields a clean summary.
//
// Counts are a straight sum over artifacts, so the result does not depend on
// input order.
func (a *Aggregator) Analyze(ctx context.Context, paths []string) (*Summary, error) {
	summary := &Summary{Counts: make(map[agent.Severity]int)}
	for _, sev := range agent.Severities() {
		summary.Counts[sev] = 0
	}

	domains := make(map[agent.Domain]bool)
	technologies := make(map[string]bool)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("skipped %s: %v", filepath.Base(path), err))
			a.logger.Warn("skipped unreadable artifact", zap.String("path", path), zap.Error(err))
			continue
		}

		content := string(data)
		found := 0
		for _, sev := range agent.Severities() {
			n := strings.Count(content, sev.Marker())
			summary.Counts[sev] += n
			found += n
		}
		summary.Total += found

		if found > 0 {
			for _, d := range detectDomains(path) {
				domains[d] = true
			}
		}
		for _, tech := range detectTechnologies(content) {
			technologies[tech] = true
		}
	}

	summary.AffectedDomains = sortedDomains(domains)
	summary.TechnologyStack = sortedStrings(technologies)
	sort.Strings(summary.Warnings)

	a.logger.Info("issue aggregation complete",
		zap.Int("artifacts", len(paths)),
		zap.Int("blocking", summary.Blocking()),
		zap.Int("warning", summary.Counts[agent.SeverityWarning]),
		zap.Int("info", summary.Counts[agent.SeverityInfo]),
		zap.Int("skipped", len(summary.Warnings)),
	)

	return summary, nil
}

// detectDomains matches name substrings against the hint table. An artifact
// whose name matches nothing contributes no domain.
func detectDomains(path string) []agent.Domain {
	name := strings.ToLower(filepath.Base(path))
	seen := make(map[agent.Domain]bool)
	var out []agent.Domain
	for _, hint := range domainHints {
		if strings.Contains(name, hint.substr) && !seen[hint.domain] {
			seen[hint.domain] = true
			out = append(out, hint.domain)
		}
	}
	return out
}

func detectTechnologies(content string) []string {
	lower := strings.ToLower(content)
	var out []string
	for tech, markers := range technologyHints {
		for _, m := range markers {
			if strings.Contains(lower, m) {
				out = append(out, tech)
				break
			}
		}
	}
	return out
}

func sortedDomains(set map[agent.Domain]bool) []agent.Domain {
	if len(set) == 0 {
		return nil
	}
	out := make([]agent.Domain, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedStrings(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
