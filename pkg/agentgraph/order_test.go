package agentgraph

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionOrder_Chain(t *testing.T) {
	m := build(t, []string{"A", "B", "C", "D"}, "A:B", "B:C", "C:D")

	order, err := m.ExecutionOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "C", "B", "A"}, order)
}

func TestExecutionOrder_Empty(t *testing.T) {
	order, err := New().ExecutionOrder()
	require.NoError(t, err)
	assert.Empty(t, order)
}

func TestExecutionOrder_UnrelatedKeepRegistrationOrder(t *testing.T) {
	m := build(t, []string{"A", "B", "C"})

	order, err := m.ExecutionOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestExecutionOrder_DependenciesFirst(t *testing.T) {
	m := build(t,
		[]string{"api", "db", "cache", "worker", "queue", "frontend"},
		"api:db", "api:cache", "worker:queue", "worker:db", "frontend:api", "cache:db",
	)

	order, err := m.ExecutionOrder()
	require.NoError(t, err)
	require.Len(t, order, m.Len())

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}
	for _, a := range m.Agents() {
		for _, dep := range a.Dependencies {
			assert.Less(t, position[dep], position[a.ID], "%s must come before %s", dep, a.ID)
		}
	}

	again, err := m.ExecutionOrder()
	require.NoError(t, err)
	assert.Equal(t, order, again, "order must be deterministic")
}

func TestExecutionOrder_Cycle(t *testing.T) {
	m := build(t, []string{"A", "B", "C"}, "A:B", "B:C", "C:A")

	order, err := m.ExecutionOrder()
	assert.Nil(t, order)
	require.ErrorIs(t, err, ErrCycleDetected)

	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"A", "B", "C"}, cycleErr.Cycle)
	assert.Equal(t, "circular dependency detected: A -> B -> C -> A", err.Error())
}

func TestExecutionOrder_CycleAmongOthers(t *testing.T) {
	m := build(t, []string{"X", "A", "B", "Y"}, "X:A", "A:B", "B:A", "B:Y")

	_, err := m.ExecutionOrder()
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"A", "B"}, cycleErr.Cycle)
}

func TestExecutionOrder_CycleRemoved(t *testing.T) {
	m := build(t, []string{"A", "B"}, "A:B", "B:A")

	_, err := m.ExecutionOrder()
	require.ErrorIs(t, err, ErrCycleDetected)

	require.NoError(t, m.RemoveDependency("B", "A"))
	order, err := m.ExecutionOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, order)
}

func TestCriticalPath_Chain(t *testing.T) {
	m := build(t, []string{"A", "B", "C", "D"}, "A:B", "B:C", "C:D")
	assert.Equal(t, []string{"A", "B", "C", "D"}, m.CriticalPath())
}

func TestCriticalPath_Empty(t *testing.T) {
	assert.Equal(t, []string{}, New().CriticalPath())

	m := build(t, []string{"A", "B"})
	assert.Equal(t, []string{}, m.CriticalPath(), "isolated agents form no path")
}

func TestCriticalPath_Longest(t *testing.T) {
	m := build(t,
		[]string{"A", "B", "C", "D", "E", "F"},
		"A:B", "B:C", // length 3
		"D:E", "E:F", "F:C", // length 4
	)
	assert.Equal(t, []string{"D", "E", "F", "C"}, m.CriticalPath())
}

func TestCriticalPath_TieGoesToEarlierAgents(t *testing.T) {
	m := build(t, []string{"A", "B", "C", "D"}, "A:B", "A:C", "B:D", "C:D")
	assert.Equal(t, []string{"A", "B", "D"}, m.CriticalPath())
}

func TestCriticalPath_FollowsEdges(t *testing.T) {
	m := build(t,
		[]string{"a", "b", "c", "d", "e", "f", "g"},
		"a:b", "a:c", "b:d", "c:e", "e:f", "d:g", "b:g",
	)

	path := m.CriticalPath()
	require.NotEmpty(t, path)

	first, _ := m.Agent(path[0])
	assert.Empty(t, first.Dependents, "path must start at an agent nothing depends on")
	last, _ := m.Agent(path[len(path)-1])
	assert.Empty(t, last.Dependencies, "path must end at an agent with no dependencies")

	for i := 0; i+1 < len(path); i++ {
		deps, err := m.Dependencies(path[i])
		require.NoError(t, err)
		assert.True(t, slices.Contains(deps, path[i+1]), "%s does not depend on %s", path[i], path[i+1])
	}
	assert.Len(t, path, 4)
}

func TestCriticalPath_CyclicGraph(t *testing.T) {
	m := build(t, []string{"S", "A", "B", "T"}, "S:A", "A:B", "B:A", "B:T")
	assert.Equal(t, []string{"S", "A", "B", "T"}, m.CriticalPath())
}

func TestCriticalPath_NoSource(t *testing.T) {
	m := build(t, []string{"A", "B"}, "A:B", "B:A")
	assert.Equal(t, []string{}, m.CriticalPath())
}
