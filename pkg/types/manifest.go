package types

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RaceManifest is the YAML form of a run specification
type RaceManifest struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ManifestMetadata `yaml:"metadata"`
	Spec       RunSpec          `yaml:"spec"`
}

type ManifestMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// LoadManifest reads and validates a race manifest from a YAML file
func LoadManifest(path string) (*RaceManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m RaceManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if m.Kind != "Race" {
		return nil, fmt.Errorf("unsupported resource kind: %s", m.Kind)
	}
	if m.Spec.Solver == "" {
		return nil, fmt.Errorf("race solver is required")
	}
	if m.Spec.Stub == "" {
		return nil, fmt.Errorf("race instance is required")
	}
	if m.Spec.InitialBound == 0 {
		m.Spec.InitialBound = NoBound
	}

	return &m, nil
}
