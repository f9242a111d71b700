package agentgraph

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// build registers the given agents and then the "source:target" edges.
func build(t *testing.T, agents []string, edges ...string) *Manager {
	t.Helper()
	m := New()
	for _, id := range agents {
		require.NoError(t, m.AddAgent(id, id+" agent", "worker", nil))
	}
	for _, e := range edges {
		source, target, ok := strings.Cut(e, ":")
		require.True(t, ok, "bad edge %q", e)
		require.NoError(t, m.AddDependency(source, target, ""))
	}
	return m
}

// requireInSync checks that every dependency is mirrored by a dependent and
// that the per-agent views agree with the edge count.
func requireInSync(t *testing.T, m *Manager) {
	t.Helper()
	total := 0
	for _, a := range m.Agents() {
		total += len(a.Dependencies)
		for _, dep := range a.Dependencies {
			other, err := m.Agent(dep)
			require.NoError(t, err)
			require.Contains(t, other.Dependents, a.ID, "%s depends on %s but is not its dependent", a.ID, dep)
			_, ok := m.DependencyType(a.ID, dep)
			require.True(t, ok)
		}
		for _, dependent := range a.Dependents {
			other, err := m.Agent(dependent)
			require.NoError(t, err)
			require.Contains(t, other.Dependencies, a.ID)
		}
	}
	require.Equal(t, m.EdgeCount(), total)
}

func TestAddAgent(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := New(WithClock(func() time.Time { return at }))

	meta := map[string]string{"zone": "eu"}
	require.NoError(t, m.AddAgent("planner", "Planner", "coordinator", meta))
	meta["zone"] = "changed"

	a, err := m.Agent("planner")
	require.NoError(t, err)
	assert.Equal(t, "Planner", a.Name)
	assert.Equal(t, "coordinator", a.Role)
	assert.Equal(t, StatusInitialized, a.Status)
	assert.Equal(t, at, a.LastActive)
	assert.Equal(t, map[string]string{"zone": "eu"}, a.Metadata, "metadata must be copied on registration")
	assert.Empty(t, a.Dependencies)
	assert.Empty(t, a.Dependents)
	assert.Equal(t, 1, m.Len())
}

func TestAddAgent_Errors(t *testing.T) {
	m := New()
	require.NoError(t, m.AddAgent("a", "", "", nil))

	err := m.AddAgent("a", "again", "", nil)
	require.ErrorIs(t, err, ErrAlreadyExists)

	err = m.AddAgent("", "nameless", "", nil)
	require.ErrorIs(t, err, ErrInvalidAgent)

	assert.Equal(t, 1, m.Len())
}

func TestAddDependency(t *testing.T) {
	m := build(t, []string{"A", "B", "C"})

	require.NoError(t, m.AddDependency("A", "B", "data"))
	require.NoError(t, m.AddDependency("A", "C", ""))

	deps, err := m.Dependencies("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, deps)

	dependents, err := m.Dependents("B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, dependents)

	kind, ok := m.DependencyType("A", "B")
	require.True(t, ok)
	assert.Equal(t, "data", kind)

	kind, ok = m.DependencyType("A", "C")
	require.True(t, ok)
	assert.Equal(t, DefaultDependencyType, kind)

	_, ok = m.DependencyType("B", "A")
	assert.False(t, ok, "dependencies are directed")

	// Re-adding replaces the type without duplicating the edge.
	require.NoError(t, m.AddDependency("A", "B", "control"))
	kind, _ = m.DependencyType("A", "B")
	assert.Equal(t, "control", kind)
	assert.Equal(t, 2, m.EdgeCount())
}

func TestAddDependency_Errors(t *testing.T) {
	m := build(t, []string{"A", "B"})

	require.ErrorIs(t, m.AddDependency("A", "missing", ""), ErrNotFound)
	require.ErrorIs(t, m.AddDependency("missing", "A", ""), ErrNotFound)
	require.ErrorIs(t, m.AddDependency("A", "A", ""), ErrSelfDependency)

	assert.Equal(t, 0, m.EdgeCount())
	requireInSync(t, m)
}

func TestRemoveDependency(t *testing.T) {
	m := build(t, []string{"A", "B", "C"}, "A:B", "B:C")

	require.NoError(t, m.RemoveDependency("A", "B"))
	deps, _ := m.Dependencies("A")
	assert.Empty(t, deps)
	dependents, _ := m.Dependents("B")
	assert.Empty(t, dependents)

	// Removing an absent edge is a no-op.
	require.NoError(t, m.RemoveDependency("A", "B"))
	require.NoError(t, m.RemoveDependency("C", "A"))
	assert.Equal(t, 1, m.EdgeCount())

	require.ErrorIs(t, m.RemoveDependency("A", "missing"), ErrNotFound)
	requireInSync(t, m)
}

func TestRemoveAgent(t *testing.T) {
	m := build(t, []string{"A", "B", "C"}, "A:B", "B:C", "A:C")

	require.NoError(t, m.RemoveAgent("B"))
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 1, m.EdgeCount())

	_, err := m.Agent("B")
	require.ErrorIs(t, err, ErrNotFound)

	dependents, _ := m.Dependents("C")
	assert.Equal(t, []string{"A"}, dependents)

	require.ErrorIs(t, m.RemoveAgent("B"), ErrNotFound)

	// A removed ID can be registered again and starts out clean.
	require.NoError(t, m.AddAgent("B", "", "", nil))
	b, err := m.Agent("B")
	require.NoError(t, err)
	assert.Empty(t, b.Dependencies)
	assert.Empty(t, b.Dependents)
	requireInSync(t, m)
}

func TestUpdateAgentStatus(t *testing.T) {
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	m := New(WithClock(func() time.Time { return clock }))
	require.NoError(t, m.AddAgent("A", "", "", map[string]string{"a": "1", "b": "2"}))

	clock = clock.Add(time.Minute)
	require.NoError(t, m.UpdateAgentStatus("A", "running", map[string]string{"b": "3", "c": "4"}))

	a, err := m.Agent("A")
	require.NoError(t, err)
	assert.Equal(t, "running", a.Status)
	assert.Equal(t, clock, a.LastActive)
	assert.Equal(t, map[string]string{"a": "1", "b": "3", "c": "4"}, a.Metadata)

	require.NoError(t, m.UpdateAgentStatus("A", "idle", nil))
	a, _ = m.Agent("A")
	assert.Equal(t, "idle", a.Status)
	assert.Len(t, a.Metadata, 3)

	require.ErrorIs(t, m.UpdateAgentStatus("nobody", "running", nil), ErrNotFound)
}

func TestAgent_ReturnsCopies(t *testing.T) {
	m := build(t, []string{"A", "B"}, "A:B")
	require.NoError(t, m.UpdateAgentStatus("A", "running", map[string]string{"k": "v"}))

	a, _ := m.Agent("A")
	a.Metadata["k"] = "mutated"
	a.Dependencies[0] = "mutated"

	again, _ := m.Agent("A")
	assert.Equal(t, "v", again.Metadata["k"])
	assert.Equal(t, []string{"B"}, again.Dependencies)
}

func TestAgents_RegistrationOrder(t *testing.T) {
	m := build(t, []string{"c", "a", "b"})

	var ids []string
	for _, a := range m.Agents() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestDependencies_StayInSync(t *testing.T) {
	ids := []string{"A", "B", "C", "D", "E", "F"}
	m := build(t, ids)
	rng := rand.New(rand.NewPCG(7, 11))

	for range 500 {
		source := ids[rng.IntN(len(ids))]
		target := ids[rng.IntN(len(ids))]
		switch rng.IntN(5) {
		case 0, 1, 2:
			err := m.AddDependency(source, target, "")
			if source == target {
				require.ErrorIs(t, err, ErrSelfDependency)
			} else {
				require.NoError(t, err)
			}
		case 3:
			require.NoError(t, m.RemoveDependency(source, target))
		case 4:
			require.NoError(t, m.RemoveAgent(source))
			require.NoError(t, m.AddAgent(source, "", "", nil))
		}
		requireInSync(t, m)
	}

	position := make(map[string]int)
	for i, a := range m.Agents() {
		position[a.ID] = i
	}
	for _, a := range m.Agents() {
		assert.True(t, slices.IsSortedFunc(a.Dependencies, func(x, y string) int {
			return position[x] - position[y]
		}), "dependencies of %s not in registration order", a.ID)
	}
}
