package graph

import (
	"errors"
	"reflect"
	"testing"
)

// build chains mutations, failing the test on any error.
func build(t *testing.T, directed bool, nodes int, edges [][2]int64) (*Graph, []int64) {
	t.Helper()
	g := New(directed)
	ids := make([]int64, 0, nodes)
	for i := 0; i < nodes; i++ {
		var (
			id  int64
			err error
		)
		g, id, err = g.AddNode(nil)
		if err != nil {
			t.Fatalf("AddNode: %v", err)
		}
		ids = append(ids, id)
	}
	for _, e := range edges {
		var err error
		g, _, err = g.AddEdge(e[0], e[1], nil)
		if err != nil {
			t.Fatalf("AddEdge %v: %v", e, err)
		}
	}
	return g, ids
}

func TestAddNodeAssignsUniqueMonotonicIDs(t *testing.T) {
	g := New(true)
	seen := map[int64]bool{}
	var last int64
	for i := 0; i < 10; i++ {
		var (
			id  int64
			err error
		)
		g, id, err = g.AddNode(map[string]any{"i": i})
		if err != nil {
			t.Fatalf("AddNode: %v", err)
		}
		if seen[id] {
			t.Fatalf("ID %d reused", id)
		}
		if id <= last {
			t.Fatalf("ID %d not monotonic after %d", id, last)
		}
		seen[id] = true
		last = id
		if !g.HasNode(id) {
			t.Fatalf("node %d not present immediately after AddNode", id)
		}
	}
}

func TestNodeIDsNotReusedAfterDelete(t *testing.T) {
	g, ids := build(t, true, 3, nil)
	g, err := g.DeleteNode(ids[2])
	if err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	g, id, err := g.AddNode(nil)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if id == ids[2] {
		t.Errorf("deleted ID %d was reused", ids[2])
	}
}

func TestAddEdgeReferentialIntegrity(t *testing.T) {
	g, ids := build(t, true, 2, nil)

	if _, _, err := g.AddEdge(ids[0], 99, nil); !errors.Is(err, ErrReferentialIntegrity) {
		t.Errorf("missing target: got %v, want ErrReferentialIntegrity", err)
	}
	if _, _, err := g.AddEdge(99, ids[1], nil); !errors.Is(err, ErrReferentialIntegrity) {
		t.Errorf("missing source: got %v, want ErrReferentialIntegrity", err)
	}

	// Both endpoints present: succeeds, including self-loops.
	g, _, err := g.AddEdge(ids[0], ids[1], nil)
	if err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if _, _, err := g.AddEdge(ids[0], ids[0], nil); err != nil {
		t.Errorf("self-loop rejected: %v", err)
	}
}

func TestDeleteNodeCascadesIncidentEdges(t *testing.T) {
	g, ids := build(t, true, 4, [][2]int64{
		{1, 2}, {2, 3}, {3, 2}, {3, 4}, {2, 2},
	})
	before := g.EdgeCount()

	g, err := g.DeleteNode(ids[1])
	if err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	// Edges 1->2, 2->3, 3->2 and the self-loop 2->2 must all be gone.
	if got := g.EdgeCount(); got != before-4 {
		t.Errorf("edge count = %d, want %d", got, before-4)
	}
	for _, e := range g.Edges() {
		if e.From == ids[1] || e.To == ids[1] {
			t.Errorf("dangling edge %d survives: %d->%d", e.ID, e.From, e.To)
		}
	}
	if g.HasNode(ids[1]) {
		t.Errorf("node %d still present", ids[1])
	}
}

func TestDeleteNodeWithoutEdgesLeavesEdgeTableAlone(t *testing.T) {
	g, ids := build(t, true, 3, [][2]int64{{1, 2}})
	g, err := g.DeleteNode(ids[2])
	if err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("edge count = %d, want 1", g.EdgeCount())
	}
}

func TestAddEdgesAllOrNothing(t *testing.T) {
	g, ids := build(t, true, 2, nil)
	_, _, err := g.AddEdges([]EdgeSpec{
		{From: ids[0], To: ids[1]},
		{From: ids[1], To: 42}, // invalid row
	})
	if !errors.Is(err, ErrReferentialIntegrity) {
		t.Fatalf("got %v, want ErrReferentialIntegrity", err)
	}
	// Nothing committed: first row must not have landed.
	if g.EdgeCount() != 0 {
		t.Errorf("partial commit: %d edges", g.EdgeCount())
	}
}

func TestValueSemantics(t *testing.T) {
	g1, ids := build(t, true, 2, [][2]int64{{1, 2}})
	nodesBefore := g1.Nodes()

	g2, err := g1.SetNodeAttr(ids[0], "color", "red")
	if err != nil {
		t.Fatalf("SetNodeAttr: %v", err)
	}
	// The original value is untouched.
	if !reflect.DeepEqual(g1.Nodes(), nodesBefore) {
		t.Errorf("input graph mutated")
	}
	if _, ok := g1.NodeAttr(ids[0], "color"); ok {
		t.Errorf("attribute visible on input graph")
	}
	if v, _ := g2.NodeAttr(ids[0], "color"); v != "red" {
		t.Errorf("attribute = %v, want red", v)
	}
}

func TestFailedOperationReturnsInputUnchanged(t *testing.T) {
	g, _ := build(t, true, 2, [][2]int64{{1, 2}})
	v := g.Version()

	g2, _, err := g.AddEdge(1, 99, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if g2 != g {
		t.Errorf("failed op returned a different value")
	}
	if g2.Version() != v {
		t.Errorf("version advanced on failure")
	}
}

func TestInvalidGraphGuard(t *testing.T) {
	var g *Graph
	if _, _, err := g.AddNode(nil); !errors.Is(err, ErrInvalidGraph) {
		t.Errorf("nil graph: got %v, want ErrInvalidGraph", err)
	}
	zero := &Graph{}
	if _, err := zero.DeleteNode(1); !errors.Is(err, ErrInvalidGraph) {
		t.Errorf("zero graph: got %v, want ErrInvalidGraph", err)
	}
}

func TestAttrNamesColumnView(t *testing.T) {
	g := New(false)
	g, _, _ = g.AddNode(map[string]any{"label": "a", "value": 1})
	g, _, _ = g.AddNode(map[string]any{"label": "b", "shade": "dark"})

	want := []string{"label", "shade", "value"}
	if got := g.NodeAttrNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("NodeAttrNames = %v, want %v", got, want)
	}
}

func TestSetNodeAttrsBulk(t *testing.T) {
	g, ids := build(t, true, 3, nil)
	logBefore := len(g.Log())

	g, err := g.SetNodeAttrs("rank", map[int64]any{ids[0]: 0.5, ids[1]: 0.3, ids[2]: 0.2})
	if err != nil {
		t.Fatalf("SetNodeAttrs: %v", err)
	}
	if got := len(g.Log()); got != logBefore+1 {
		t.Errorf("bulk set appended %d entries, want 1", got-logBefore)
	}
	if v, _ := g.NodeAttr(ids[1], "rank"); v != 0.3 {
		t.Errorf("rank = %v, want 0.3", v)
	}

	if _, err := g.SetNodeAttrs("rank", map[int64]any{99: 1.0}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown node: got %v, want ErrNotFound", err)
	}
}
