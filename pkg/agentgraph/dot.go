package agentgraph

import (
	"fmt"

	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
)

// DOTGraphName is the graph ID written by DOT.
const DOTGraphName = "agents"

// DOTID implements dot.Node; agents are written under their own IDs.
func (v vertex) DOTID() string { return v.rec.id }

// Attributes implements encoding.Attributer for DOT output.
func (v vertex) Attributes() []encoding.Attribute {
	label := v.rec.name
	if label == "" {
		label = v.rec.id
	}
	attrs := []encoding.Attribute{{Key: "label", Value: label}}
	if v.rec.role != "" {
		attrs = append(attrs, encoding.Attribute{Key: "role", Value: v.rec.role})
	}
	return append(attrs, encoding.Attribute{Key: "status", Value: v.rec.status})
}

// Attributes implements encoding.Attributer for DOT output.
func (e dependency) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "label", Value: e.kind}}
}

// DOT renders the graph in Graphviz DOT format. Nodes carry label, role and
// status attributes; edges point from dependent to dependency and carry
// the dependency type as their label.
func (m *Manager) DOT() (string, error) {
	b, err := dot.Marshal(m.graph, DOTGraphName, "", "\t")
	if err != nil {
		return "", fmt.Errorf("failed to marshal DOT: %w", err)
	}
	return string(b), nil
}
