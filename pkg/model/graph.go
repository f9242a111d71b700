package model

import "time"

// Topology is the serialisable view of an agent dependency graph.
// It is shared by the manifest loader, the HTTP API and pub/sub payloads.
type Topology struct {
	Agents       []Agent      `json:"agents"`
	Dependencies []Dependency `json:"dependencies"`
}

// NewTopology creates a new empty topology.
func NewTopology() *Topology {
	return &Topology{
		Agents:       make([]Agent, 0),
		Dependencies: make([]Dependency, 0),
	}
}

// Agent is a vertex in the topology.
type Agent struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Role         string            `json:"role"`
	Status       string            `json:"status"`
	LastActive   time.Time         `json:"lastActive"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Dependencies []string          `json:"dependencies"`
	Dependents   []string          `json:"dependents"`
}

// Dependency is a directed "source depends on target" edge.
type Dependency struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"` // e.g., "default", "data", "control"
}

// AddAgent appends an agent to the topology.
func (t *Topology) AddAgent(agent Agent) {
	if agent.Dependencies == nil {
		agent.Dependencies = []string{}
	}
	if agent.Dependents == nil {
		agent.Dependents = []string{}
	}
	t.Agents = append(t.Agents, agent)
}

// AddDependency appends a dependency edge to the topology.
func (t *Topology) AddDependency(dep Dependency) {
	t.Dependencies = append(t.Dependencies, dep)
}

// Agent returns the agent with the given ID.
func (t *Topology) Agent(id string) (Agent, bool) {
	for _, a := range t.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}
