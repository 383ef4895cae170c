// Package core is the composition root: EnsembleCore owns configuration,
// the sub-model registry, and the dependency graph, and orchestrates the
// four-phase Model lifecycle across samples, delegating to the Picard
// driver when the dependency graph is cyclic.
package core

import (
	"encoding/json"
	"fmt"
	"os"
)

// SettingsConfig is the optional per-ensemble settings block (§6).
type SettingsConfig struct {
	MaxIterations int     `json:"maxIterations"`
	Tolerance     float64 `json:"tolerance"`
}

// SubModelConfig is one declarative sub-model entry (§6).
type SubModelConfig struct {
	Name             string         `json:"name"`
	Variant          string         `json:"variant"`
	InputObjectNames []string       `json:"inputNames"`
	Inputs           []string       `json:"inputs"`
	Outputs          []string       `json:"outputs"`
	Settings         map[string]any `json:"settings"`
}

// Config is the declarative configuration for one EnsembleModel step
// (§6). SampledVariables is this module's resolution of the Open
// Question left implicit by the distilled spec: the global sampled-
// variable set S that DependencyGraph validates against must be declared
// somewhere, since no live sampler handshake exists at configuration-load
// time; see DESIGN.md.
type Config struct {
	Name             string           `json:"name"`
	SubModels        []SubModelConfig `json:"subModels"`
	SampledVariables []string         `json:"sampledVariables"`
	Settings         SettingsConfig   `json:"settings"`
}

// LoadConfig reads and decodes a Config from path, matching
// cmd/zerfoo-train/main.go's CLIConfig load path (os.ReadFile +
// json.Unmarshal).
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("core: reading config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("core: decoding config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate enforces the Configuration error-taxonomy checks that do not
// require the dependency graph: at least two sub-models, unique names,
// and a non-empty variant for each (§7).
func (c *Config) Validate() error {
	if len(c.SubModels) < 2 {
		return &ConfigurationError{Reason: "an ensemble requires at least two sub-models"}
	}
	seen := make(map[string]struct{}, len(c.SubModels))
	for _, sm := range c.SubModels {
		if sm.Name == "" {
			return &ConfigurationError{Reason: "sub-model entry is missing a name"}
		}
		if _, dup := seen[sm.Name]; dup {
			return &ConfigurationError{Reason: fmt.Sprintf("duplicate sub-model name %q", sm.Name)}
		}
		seen[sm.Name] = struct{}{}
		if sm.Variant == "" {
			return &ConfigurationError{Reason: fmt.Sprintf("sub-model %q is missing a variant", sm.Name)}
		}
	}
	return nil
}
