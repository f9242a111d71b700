package cycles

import (
	"slices"
	"testing"

	"gonum.org/v1/gonum/graph/simple"
)

// newGraph builds a directed graph with nodes 0..n-1 and the given edges.
func newGraph(n int, edges ...[2]int64) *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for i := range n {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, e := range edges {
		g.SetEdge(g.NewEdge(simple.Node(e[0]), simple.Node(e[1])))
	}
	return g
}

func TestFind_NoCycles(t *testing.T) {
	// A simple acyclic chain: 0 -> 1 -> 2
	g := newGraph(3, [2]int64{0, 1}, [2]int64{1, 2})

	found := Find(g)

	if len(found) != 0 {
		t.Errorf("Expected no cycles, but found %d", len(found))
	}
}

func TestFind_SimpleCycle(t *testing.T) {
	// 0 -> 1 -> 0
	g := newGraph(2, [2]int64{0, 1}, [2]int64{1, 0})

	found := Find(g)

	if len(found) != 1 {
		t.Fatalf("Expected 1 cycle, but found %d", len(found))
	}
	if !slices.Equal(found[0], []int64{0, 1}) {
		t.Errorf("Expected cycle [0 1], got %v", found[0])
	}
}

func TestFind_ThreeNodeCycle(t *testing.T) {
	// 0 -> 1 -> 2 -> 0
	g := newGraph(3, [2]int64{0, 1}, [2]int64{1, 2}, [2]int64{2, 0})

	found := Find(g)

	if len(found) != 1 {
		t.Fatalf("Expected 1 cycle, but found %d", len(found))
	}
	if !slices.Equal(found[0], []int64{0, 1, 2}) {
		t.Errorf("Expected cycle [0 1 2], got %v", found[0])
	}
}

func TestFind_MultipleCycles(t *testing.T) {
	// Cycle 1: 0 -> 1 -> 0
	// Cycle 2: 2 -> 3 -> 4 -> 2
	g := newGraph(5,
		[2]int64{0, 1}, [2]int64{1, 0},
		[2]int64{2, 3}, [2]int64{3, 4}, [2]int64{4, 2},
	)

	found := Find(g)

	if len(found) != 2 {
		t.Fatalf("Expected 2 cycles, but found %d", len(found))
	}
	if len(found[0]) != 2 || len(found[1]) != 3 {
		t.Errorf("Expected a 2-node cycle followed by a 3-node cycle, got %v", found)
	}
}

func TestFind_CycleWithAcyclicParts(t *testing.T) {
	// 0 -> 1 -> 2 (acyclic), 3 -> 4 -> 3 (cyclic), 2 -> 3 links them
	g := newGraph(5,
		[2]int64{0, 1}, [2]int64{1, 2}, [2]int64{2, 3},
		[2]int64{3, 4}, [2]int64{4, 3},
	)

	found := Find(g)

	if len(found) != 1 {
		t.Fatalf("Expected 1 cycle, but found %d", len(found))
	}
	if !slices.Equal(found[0], []int64{3, 4}) {
		t.Errorf("Expected cycle [3 4], got %v", found[0])
	}
}

func TestTrace_StaysInsideComponent(t *testing.T) {
	// 0 -> 1 -> 3 -> 0 and 1 -> 2 where 2 is outside the cycle.
	// The walk from 0 must not wander into 2 even though it sorts first.
	g := newGraph(4, [2]int64{0, 1}, [2]int64{1, 2}, [2]int64{1, 3}, [2]int64{3, 0})

	cycle := Trace(g, []int64{3, 0, 1})

	if !slices.Equal(cycle, []int64{0, 1, 3}) {
		t.Errorf("Expected cycle [0 1 3], got %v", cycle)
	}
}

func TestTrace_FirstClosingEdgeWins(t *testing.T) {
	// Two ways back to 0: 0 -> 1 -> 0 and 0 -> 1 -> 2 -> 0.
	// Successors are visited in ID order, so the first hit closes at 1.
	g := newGraph(3, [2]int64{0, 1}, [2]int64{1, 0}, [2]int64{1, 2}, [2]int64{2, 0})

	cycle := Trace(g, []int64{0, 1, 2})

	if !slices.Equal(cycle, []int64{0, 1}) {
		t.Errorf("Expected cycle [0 1], got %v", cycle)
	}
}

func TestTrace_Empty(t *testing.T) {
	g := newGraph(1)

	if cycle := Trace(g, nil); cycle != nil {
		t.Errorf("Expected nil for empty component, got %v", cycle)
	}
	if cycle := Trace(g, []int64{0}); cycle != nil {
		t.Errorf("Expected nil for a single node without a self loop, got %v", cycle)
	}
}

func TestTarjanSCC_Deterministic(t *testing.T) {
	g := newGraph(6,
		[2]int64{5, 4}, [2]int64{4, 5},
		[2]int64{0, 2}, [2]int64{2, 1}, [2]int64{1, 0},
	)

	first := NewTarjanSCC(g).FindSCCs()
	for range 10 {
		again := NewTarjanSCC(g).FindSCCs()
		if len(again) != len(first) {
			t.Fatalf("Expected %d components, got %d", len(first), len(again))
		}
		for i := range first {
			if !slices.Equal(first[i], again[i]) {
				t.Errorf("Component %d differs: %v vs %v", i, first[i], again[i])
			}
		}
	}

	if !slices.Equal(first[0], []int64{0, 1, 2}) || !slices.Equal(first[1], []int64{4, 5}) {
		t.Errorf("Expected components [[0 1 2] [4 5]], got %v", first)
	}
}
