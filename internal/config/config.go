// Package config loads qgate configuration from a YAML file with environment
// variable overrides.
//
// Precedence (highest to lowest): environment variables (QGATE_*), the YAML
// config file, hardcoded defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/qgate/internal/decision"
	"github.com/fyrsmithlabs/qgate/internal/logging"
	"github.com/fyrsmithlabs/qgate/internal/telemetry"
)

// envPrefix namespaces qgate environment variables,
// e.g. QGATE_GATE_MAX_ITERATIONS -> gate.max_iterations.
const envPrefix = "QGATE_"

// GateConfig holds the orchestration settings.
type GateConfig struct {
	// ArtifactRoot is the base directory for per-feature artifact stores.
	ArtifactRoot string `koanf:"artifact_root"`

	// AgentsDir is the agent descriptor store.
	AgentsDir string `koanf:"agents_dir"`

	// WorkspaceRoot is where refinement task workspaces are namespaced.
	WorkspaceRoot string `koanf:"workspace_root"`

	// MaxIterations is the refinement ceiling per feature.
	MaxIterations int `koanf:"max_iterations"`
}

// Config is the root configuration.
type Config struct {
	Gate      GateConfig       `koanf:"gate"`
	Logging   logging.Config   `koanf:"logging"`
	Telemetry telemetry.Config `koanf:"telemetry"`
}

// Load reads configuration from path (optional) and the environment.
// An empty path falls back to ~/.config/qgate/config.yaml; a missing file is
// not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, ".config", "qgate", "config.yaml")
	}

	if content, err := os.ReadFile(path); err == nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Environment overrides: QGATE_GATE_AGENTS_DIR -> gate.agents_dir.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Gate.MaxIterations < 0 {
		return fmt.Errorf("gate.max_iterations must not be negative")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Gate.ArtifactRoot == "" {
		cfg.Gate.ArtifactRoot = ".qgate/artifacts"
	}
	if cfg.Gate.AgentsDir == "" {
		cfg.Gate.AgentsDir = ".qgate/agents"
	}
	if cfg.Gate.WorkspaceRoot == "" {
		cfg.Gate.WorkspaceRoot = ".qgate/workspaces"
	}
	if cfg.Gate.MaxIterations == 0 {
		cfg.Gate.MaxIterations = decision.DefaultMaxIterations
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	def := telemetry.DefaultConfig()
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = def.ServiceName
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = def.ServiceVersion
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = def.Endpoint
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = def.Protocol
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = def.SampleRate
	}
	if cfg.Telemetry.MetricInterval == 0 {
		cfg.Telemetry.MetricInterval = def.MetricInterval
	}
}
