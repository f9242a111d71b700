// Package agentgraph models dependencies between agents as a directed graph
// and answers ordering and structural questions about it.
//
// An edge source -> target means that source depends on target. The Manager
// is not safe for concurrent use; callers serialise access themselves.
package agentgraph

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"time"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

const (
	// StatusInitialized is the status of a freshly registered agent.
	StatusInitialized = "initialized"

	// DefaultDependencyType labels dependencies registered without a type.
	DefaultDependencyType = "default"
)

// AgentNode is a point-in-time view of a registered agent.
type AgentNode struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Role         string            `json:"role"`
	Status       string            `json:"status"`
	Dependencies []string          `json:"dependencies"` // agents this one depends on
	Dependents   []string          `json:"dependents"`   // agents depending on this one
	LastActive   time.Time         `json:"lastActive"`
	Metadata     map[string]string `json:"metadata"`
}

// agentRecord is the single mutable record for an agent. The graph stores
// the record's handle; dependency sets are always read from the edges.
type agentRecord struct {
	id         string
	name       string
	role       string
	status     string
	lastActive time.Time
	metadata   map[string]string
}

// vertex is the gonum node for an agent. Its ID is the agent's handle,
// assigned in registration order and never reused.
type vertex struct {
	handle int64
	rec    *agentRecord
}

func (v vertex) ID() int64 { return v.handle }

// dependency is the gonum edge for a "source depends on target" relation.
type dependency struct {
	from, to graph.Node
	kind     string
}

func (e dependency) From() graph.Node { return e.from }
func (e dependency) To() graph.Node   { return e.to }
func (e dependency) ReversedEdge() graph.Edge {
	return dependency{from: e.to, to: e.from, kind: e.kind}
}

// Manager owns the agent records and the dependency graph over them.
type Manager struct {
	graph      *simple.DirectedGraph
	handles    map[string]int64       // agent ID -> handle
	records    map[int64]*agentRecord // handle -> record
	nextHandle int64
	policy     BottleneckPolicy
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithBottleneckPolicy overrides the thresholds used by Bottlenecks.
func WithBottleneckPolicy(p BottleneckPolicy) Option {
	return func(m *Manager) {
		m.policy = p
	}
}

// WithClock sets the time source used for LastActive.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New creates an empty dependency graph manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		graph:   simple.NewDirectedGraph(),
		handles: make(map[string]int64),
		records: make(map[int64]*agentRecord),
		policy:  DefaultBottleneckPolicy(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Len returns the number of registered agents.
func (m *Manager) Len() int {
	return len(m.records)
}

// EdgeCount returns the number of dependencies.
func (m *Manager) EdgeCount() int {
	return m.graph.Edges().Len()
}

// Policy returns the bottleneck thresholds in use.
func (m *Manager) Policy() BottleneckPolicy {
	return m.policy
}

// AddAgent registers a new agent with status "initialized" and no dependencies.
// Registering an ID twice fails with ErrAlreadyExists.
func (m *Manager) AddAgent(id, name, role string, metadata map[string]string) error {
	if id == "" {
		return fmt.Errorf("%w: empty agent ID", ErrInvalidAgent)
	}
	if _, exists := m.handles[id]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, id)
	}

	rec := &agentRecord{
		id:         id,
		name:       name,
		role:       role,
		status:     StatusInitialized,
		lastActive: m.now(),
		metadata:   make(map[string]string, len(metadata)),
	}
	maps.Copy(rec.metadata, metadata)

	handle := m.nextHandle
	m.nextHandle++
	m.handles[id] = handle
	m.records[handle] = rec
	m.graph.AddNode(vertex{handle: handle, rec: rec})

	return nil
}

// RemoveAgent unregisters an agent together with every dependency touching it.
func (m *Manager) RemoveAgent(id string) error {
	handle, err := m.lookup(id)
	if err != nil {
		return err
	}

	m.graph.RemoveNode(handle)
	delete(m.records, handle)
	delete(m.handles, id)
	return nil
}

// AddDependency records that source depends on target. An empty depType is
// stored as "default". Adding an existing dependency replaces its type.
func (m *Manager) AddDependency(source, target, depType string) error {
	from, err := m.lookup(source)
	if err != nil {
		return err
	}
	to, err := m.lookup(target)
	if err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("%w: %q", ErrSelfDependency, source)
	}
	if depType == "" {
		depType = DefaultDependencyType
	}

	m.graph.SetEdge(dependency{
		from: m.graph.Node(from),
		to:   m.graph.Node(to),
		kind: depType,
	})
	return nil
}

// RemoveDependency deletes the dependency of source on target.
// Removing a dependency that does not exist is a no-op.
func (m *Manager) RemoveDependency(source, target string) error {
	from, err := m.lookup(source)
	if err != nil {
		return err
	}
	to, err := m.lookup(target)
	if err != nil {
		return err
	}

	m.graph.RemoveEdge(from, to)
	return nil
}

// DependencyType returns the label of the dependency of source on target.
func (m *Manager) DependencyType(source, target string) (string, bool) {
	from, ok := m.handles[source]
	if !ok {
		return "", false
	}
	to, ok := m.handles[target]
	if !ok {
		return "", false
	}
	e, ok := m.graph.Edge(from, to).(dependency)
	if !ok {
		return "", false
	}
	return e.kind, true
}

// UpdateAgentStatus sets the agent's status, refreshes LastActive and merges
// metadata into the existing metadata. New values win on key collisions.
func (m *Manager) UpdateAgentStatus(id, status string, metadata map[string]string) error {
	handle, err := m.lookup(id)
	if err != nil {
		return err
	}

	rec := m.records[handle]
	rec.status = status
	rec.lastActive = m.now()
	maps.Copy(rec.metadata, metadata)
	return nil
}

// Dependencies returns the agents that id depends on, in registration order.
func (m *Manager) Dependencies(id string) ([]string, error) {
	handle, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return m.idsOf(m.graph.From(handle)), nil
}

// Dependents returns the agents that depend on id, in registration order.
func (m *Manager) Dependents(id string) ([]string, error) {
	handle, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return m.idsOf(m.graph.To(handle)), nil
}

// Agent returns a snapshot of the agent with the given ID.
func (m *Manager) Agent(id string) (AgentNode, error) {
	handle, err := m.lookup(id)
	if err != nil {
		return AgentNode{}, err
	}
	return m.snapshot(handle), nil
}

// Agents returns snapshots of all agents in registration order.
func (m *Manager) Agents() []AgentNode {
	agents := make([]AgentNode, 0, len(m.records))
	for _, handle := range m.sortedHandles() {
		agents = append(agents, m.snapshot(handle))
	}
	return agents
}

func (m *Manager) snapshot(handle int64) AgentNode {
	rec := m.records[handle]
	return AgentNode{
		ID:           rec.id,
		Name:         rec.name,
		Role:         rec.role,
		Status:       rec.status,
		Dependencies: m.idsOf(m.graph.From(handle)),
		Dependents:   m.idsOf(m.graph.To(handle)),
		LastActive:   rec.lastActive,
		Metadata:     maps.Clone(rec.metadata),
	}
}

func (m *Manager) lookup(id string) (int64, error) {
	handle, ok := m.handles[id]
	if !ok {
		return 0, notFound(id)
	}
	return handle, nil
}

// sortedHandles returns every handle in registration order.
func (m *Manager) sortedHandles() []int64 {
	handles := slices.Collect(maps.Keys(m.records))
	slices.Sort(handles)
	return handles
}

// idsOf drains a node iterator into agent IDs ordered by handle.
func (m *Manager) idsOf(it graph.Nodes) []string {
	return m.idsFor(sortedIDs(it))
}

func (m *Manager) idsFor(handles []int64) []string {
	ids := make([]string, len(handles))
	for i, h := range handles {
		ids[i] = m.records[h].id
	}
	return ids
}

// newestFirst orders gonum nodes by descending handle. The stabilized
// topological sort visits nodes in the reverse of this order, so ties
// come out in registration order once the result is flipped into
// execution order.
func newestFirst(nodes []graph.Node) {
	slices.SortFunc(nodes, func(a, b graph.Node) int {
		return cmp.Compare(b.ID(), a.ID())
	})
}
