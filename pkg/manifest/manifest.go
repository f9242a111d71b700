// Package manifest reads agent topologies from YAML files.
//
// A manifest lists agents and, per agent, the agents it depends on:
//
//	agents:
//	  - id: planner
//	    name: Planner
//	    role: orchestrator
//	    depends_on:
//	      - researcher
//	      - {id: store, type: data}
package manifest

import (
	"errors"
	"fmt"
	"os"

	"github.com/ritzau/agentgraph/pkg/agentgraph"
	"github.com/ritzau/agentgraph/pkg/model"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned for manifests that parse but cannot describe a graph.
var ErrInvalid = errors.New("invalid manifest")

// Manifest is the decoded form of a manifest file.
type Manifest struct {
	Agents []Agent `yaml:"agents"`
}

// Agent is one entry of the agents list.
type Agent struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	Role      string            `yaml:"role"`
	Status    string            `yaml:"status"`
	Metadata  map[string]string `yaml:"metadata"`
	DependsOn []Dependency      `yaml:"depends_on"`
}

// Dependency names an agent that the enclosing agent depends on.
// It decodes from either a bare ID or an {id, type} mapping.
type Dependency struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
}

func (d *Dependency) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&d.ID)
	}

	// Alias type drops the method set so Decode does not recurse.
	type plain Dependency
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*d = Dependency(p)
	return nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest and checks that every agent has an ID and every
// dependency names an agent.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	for i, a := range m.Agents {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: agent #%d has no id", ErrInvalid, i+1)
		}
		for _, d := range a.DependsOn {
			if d.ID == "" {
				return nil, fmt.Errorf("%w: agent %q has a dependency without id", ErrInvalid, a.ID)
			}
		}
	}
	return &m, nil
}

// Topology converts the manifest into the shared topology model.
func (m *Manifest) Topology() *model.Topology {
	t := model.NewTopology()
	for _, a := range m.Agents {
		t.AddAgent(model.Agent{
			ID:       a.ID,
			Name:     a.Name,
			Role:     a.Role,
			Status:   a.Status,
			Metadata: a.Metadata,
		})
	}
	for _, a := range m.Agents {
		for _, d := range a.DependsOn {
			t.AddDependency(model.Dependency{Source: a.ID, Target: d.ID, Type: d.Type})
		}
	}
	return t
}

// Build creates a manager holding every agent and dependency of the manifest.
// All agents are registered before any dependency, so order within the file
// does not matter.
func (m *Manifest) Build(opts ...agentgraph.Option) (*agentgraph.Manager, error) {
	g := agentgraph.New(opts...)
	if err := g.Load(m.Topology()); err != nil {
		return nil, err
	}
	return g, nil
}
