package graph

import (
	"errors"
	"testing"
)

// checkGapless fails unless the log versions run 1..n with step 1.
func checkGapless(t *testing.T, g *Graph) {
	t.Helper()
	entries := g.Log()
	for i, e := range entries {
		if want := int64(i + 1); e.Version != want {
			t.Fatalf("log[%d].Version = %d, want %d (function %s)", i, e.Version, want, e.Function)
		}
	}
	if len(entries) > 0 && entries[len(entries)-1].Version != g.Version() {
		t.Fatalf("graph version %d != last log version %d", g.Version(), entries[len(entries)-1].Version)
	}
}

func TestVersionsGaplessAcrossChainedOps(t *testing.T) {
	g := New(true)
	var err error

	// A mixed chain well past twenty mutating calls.
	for i := 0; i < 8; i++ {
		g, _, err = g.AddNode(map[string]any{"w": i + 1})
		if err != nil {
			t.Fatalf("AddNode: %v", err)
		}
	}
	for i := int64(1); i < 8; i++ {
		g, _, err = g.AddEdge(i, i+1, nil)
		if err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	g, _ = g.SelectNodes([]int64{1, 2, 3}, SelectReplace)
	g, _ = g.SetNodeAttrWS("tier", "low")
	g, _ = g.InvertNodeSelection()
	g, _ = g.SetNodeAttrWS("tier", "high")
	g, _ = g.ClearSelection()
	g, _ = g.SelectNodes([]int64{4}, SelectReplace)
	g, _, _ = g.TravBoth(nil)
	g, err = g.SetNodeAttr(1, "root", true)
	if err != nil {
		t.Fatalf("SetNodeAttr: %v", err)
	}

	if len(g.Log()) < 22 {
		t.Fatalf("chain too short: %d entries", len(g.Log()))
	}
	checkGapless(t, g)
}

func TestRescaleNodeAttrWS(t *testing.T) {
	g := New(true)
	for _, w := range []float64{10, 20, 30} {
		g, _, _ = g.AddNode(map[string]any{"w": w})
	}
	g, _ = g.SelectNodes([]int64{1, 2, 3}, SelectReplace)

	g, err := g.RescaleNodeAttrWS("w", 0, 1)
	if err != nil {
		t.Fatalf("RescaleNodeAttrWS: %v", err)
	}
	want := map[int64]float64{1: 0, 2: 0.5, 3: 1}
	for id, w := range want {
		v, _ := g.NodeAttr(id, "w")
		if v != w {
			t.Errorf("node %d: w = %v, want %v", id, v, w)
		}
	}
}

func TestRescaleCollapsesLogToOneEntry(t *testing.T) {
	g := New(true)
	for _, w := range []float64{1, 2, 3, 4} {
		g, _, _ = g.AddNode(map[string]any{"w": w})
	}
	g, _ = g.SelectNodes([]int64{1, 2, 3, 4}, SelectReplace)
	before := len(g.Log())
	v := g.Version()

	g, err := g.RescaleNodeAttrWS("w", 0, 100)
	if err != nil {
		t.Fatalf("RescaleNodeAttrWS: %v", err)
	}
	// Four internal setter calls collapse into one entry, one version.
	entries := g.Log()
	if len(entries) != before+1 {
		t.Fatalf("log grew by %d entries, want 1", len(entries)-before)
	}
	last := entries[len(entries)-1]
	if last.Function != "rescale_node_attr_ws" {
		t.Errorf("last entry = %s", last.Function)
	}
	if g.Version() != v+1 {
		t.Errorf("version = %d, want %d", g.Version(), v+1)
	}
	checkGapless(t, g)
}

func TestRescaleDegenerateRange(t *testing.T) {
	g := New(true)
	g, _, _ = g.AddNode(map[string]any{"w": 7.0})
	g, _, _ = g.AddNode(map[string]any{"w": 7.0})
	g, _ = g.SelectNodes([]int64{1, 2}, SelectReplace)

	// All values equal: everything maps to the lower bound.
	g, err := g.RescaleNodeAttrWS("w", 2, 5)
	if err != nil {
		t.Fatalf("RescaleNodeAttrWS: %v", err)
	}
	for _, id := range []int64{1, 2} {
		if v, _ := g.NodeAttr(id, "w"); v != 2.0 {
			t.Errorf("node %d: w = %v, want 2", id, v)
		}
	}
}

func TestRescaleErrors(t *testing.T) {
	g := New(true)
	g, _, _ = g.AddNode(map[string]any{"w": 1.0})
	g, _, _ = g.AddNode(map[string]any{"label": "no weight"})

	if _, err := g.RescaleNodeAttrWS("w", 0, 1); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("empty selection: got %v", err)
	}

	g, _ = g.SelectNodes([]int64{1, 2}, SelectReplace)
	if _, err := g.RescaleNodeAttrWS("w", 0, 1); !errors.Is(err, ErrInvalidAttribute) {
		t.Errorf("missing attribute: got %v", err)
	}
	if _, err := g.RescaleNodeAttrWS("w", 1, 0); !errors.Is(err, ErrInvalidAttribute) {
		t.Errorf("inverted range: got %v", err)
	}

	g, _ = g.SelectNodes([]int64{1}, SelectReplace)
	g, _ = g.SetNodeAttr(1, "w", "heavy")
	if _, err := g.RescaleNodeAttrWS("w", 0, 1); !errors.Is(err, ErrInvalidAttribute) {
		t.Errorf("non-numeric attribute: got %v", err)
	}
}

func TestLogRecordsTableSizes(t *testing.T) {
	g, _ := build(t, true, 3, [][2]int64{{1, 2}})
	entries := g.Log()
	last := entries[len(entries)-1]
	if last.Function != "add_edge" || last.Nodes != 3 || last.Edges != 1 {
		t.Errorf("last entry = %+v", last)
	}
}
