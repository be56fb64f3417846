package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDomain(t *testing.T) {
	tests := []struct {
		input string
		want  Domain
	}{
		{"backend", DomainBackend},
		{"Backend", DomainBackend},
		{"  security ", DomainSecurity},
		{"frontend", DomainFrontend},
		{"performance", DomainPerformance},
		{"blockchain", DomainUnknown},
		{"", DomainUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDomain(tt.input), "input %q", tt.input)
	}
}

func TestSeverityMarker(t *testing.T) {
	assert.Equal(t, "[BLOCKING]", SeverityBlocking.Marker())
	assert.Equal(t, "[WARNING]", SeverityWarning.Marker())
	assert.Equal(t, "[INFO]", SeverityInfo.Marker())
}

func TestSeveritiesOrder(t *testing.T) {
	sevs := Severities()
	require.Len(t, sevs, 3)
	assert.Equal(t, SeverityBlocking, sevs[0], "blocking is most severe")
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr error
	}{
		{
			name: "valid development agent",
			desc: Descriptor{Name: "go-backend-fixer", Kind: KindDevelopment},
		},
		{
			name:    "missing name",
			desc:    Descriptor{Kind: KindQuality},
			wantErr: ErrMissingName,
		},
		{
			name:    "blank name",
			desc:    Descriptor{Name: "   ", Kind: KindQuality},
			wantErr: ErrMissingName,
		},
		{
			name:    "bad kind",
			desc:    Descriptor{Name: "x", Kind: Kind("wizard")},
			wantErr: ErrInvalidKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDescriptorHasDomain(t *testing.T) {
	d := Descriptor{
		Name:    "a",
		Kind:    KindDevelopment,
		Domains: []Domain{DomainBackend, DomainSecurity},
	}

	assert.True(t, d.HasDomain(DomainBackend))
	assert.True(t, d.HasDomain(DomainSecurity))
	assert.False(t, d.HasDomain(DomainFrontend))
}

func TestDescriptorTechnologyTags(t *testing.T) {
	d := Descriptor{
		Name:         "a",
		Kind:         KindDevelopment,
		Capabilities: []string{"golang-development", "react-refactoring", "security-remediation"},
	}

	tags := d.TechnologyTags()
	assert.ElementsMatch(t, []string{"go", "react"}, tags)
}

func TestDescriptorTechnologyTags_NoSubstringMatching(t *testing.T) {
	// "gofmt" must not resolve to "go": tokens are matched exactly.
	d := Descriptor{
		Name:         "a",
		Kind:         KindDevelopment,
		Capabilities: []string{"gofmt-cleanup"},
	}

	assert.Empty(t, d.TechnologyTags())
}

func TestSupportsAnyTechnology(t *testing.T) {
	goAgent := Descriptor{
		Name:         "go-dev",
		Kind:         KindDevelopment,
		Capabilities: []string{"golang-development"},
	}
	neutral := Descriptor{
		Name:         "generalist",
		Kind:         KindDevelopment,
		Capabilities: []string{"code-review"},
	}

	assert.True(t, goAgent.SupportsAnyTechnology(nil), "empty stack matches everything")
	assert.True(t, goAgent.SupportsAnyTechnology([]string{"go"}))
	assert.False(t, goAgent.SupportsAnyTechnology([]string{"react"}))
	assert.True(t, neutral.SupportsAnyTechnology([]string{"react"}), "agents without tech tags are neutral")
}
