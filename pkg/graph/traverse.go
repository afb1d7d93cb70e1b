package graph

import (
	"fmt"
	"time"
)

// Direction controls which edges a traversal follows relative to the
// selected nodes. On undirected graphs every direction behaves as DirBoth.
type Direction int

const (
	DirOut Direction = iota
	DirIn
	DirBoth
)

func (d Direction) String() string {
	switch d {
	case DirOut:
		return "out"
	case DirIn:
		return "in"
	case DirBoth:
		return "both"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection maps a direction name to its Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "out", "outgoing":
		return DirOut, nil
	case "in", "incoming":
		return DirIn, nil
	case "both":
		return DirBoth, nil
	}
	return DirOut, fmt.Errorf("unknown traversal direction %q", s)
}

// Traverse derives a new node selection from the current one by following
// edges in the given direction and collecting the opposite endpoints,
// deduplicated and sorted ascending. A non-nil filter restricts the result
// to nodes whose attributes satisfy it.
//
// An empty node selection is an error; a traversal that reaches no nodes
// is not: the graph comes back unchanged with found=false.
func (g *Graph) Traverse(dir Direction, f *Filter) (*Graph, bool, error) {
	if err := g.valid(); err != nil {
		return g, false, err
	}
	if len(g.sel.Nodes) == 0 {
		return g, false, fmt.Errorf("trav_%s: %w", dir, ErrEmptySelection)
	}
	start := time.Now()

	selected := make(map[int64]struct{}, len(g.sel.Nodes))
	for _, id := range g.sel.Nodes {
		selected[id] = struct{}{}
	}
	reached := make(map[int64]struct{})
	for _, e := range g.edges {
		if _, ok := selected[e.From]; ok && g.follows(dir, true) {
			reached[e.To] = struct{}{}
		}
		if _, ok := selected[e.To]; ok && g.follows(dir, false) {
			reached[e.From] = struct{}{}
		}
	}

	var ids []int64
	for id := range reached {
		if f != nil {
			n, ok := g.Node(id)
			if !ok || !f.MatchNode(n) {
				continue
			}
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return g, false, nil
	}
	sortIDs(ids)

	ng := g.clone()
	ng.sel.Nodes = ids
	ng.sel.Edges = nil
	return ng.commit("trav_"+dir.String(), start, false), true, nil
}

// TravOut follows outgoing edges.
func (g *Graph) TravOut(f *Filter) (*Graph, bool, error) { return g.Traverse(DirOut, f) }

// TravIn follows incoming edges.
func (g *Graph) TravIn(f *Filter) (*Graph, bool, error) { return g.Traverse(DirIn, f) }

// TravBoth follows edges in both directions.
func (g *Graph) TravBoth(f *Filter) (*Graph, bool, error) { return g.Traverse(DirBoth, f) }

// TraverseEdges derives an edge selection from the current node selection:
// the edges leaving (DirOut), entering (DirIn), or touching (DirBoth) the
// selected nodes. A non-nil filter restricts which edges are kept.
func (g *Graph) TraverseEdges(dir Direction, f *Filter) (*Graph, bool, error) {
	if err := g.valid(); err != nil {
		return g, false, err
	}
	if len(g.sel.Nodes) == 0 {
		return g, false, fmt.Errorf("trav_%s_edge: %w", dir, ErrEmptySelection)
	}
	start := time.Now()

	selected := make(map[int64]struct{}, len(g.sel.Nodes))
	for _, id := range g.sel.Nodes {
		selected[id] = struct{}{}
	}
	var ids []int64
	for _, e := range g.edges {
		_, fromSel := selected[e.From]
		_, toSel := selected[e.To]
		if !(fromSel && g.follows(dir, true)) && !(toSel && g.follows(dir, false)) {
			continue
		}
		if f != nil && !f.MatchEdge(e) {
			continue
		}
		ids = append(ids, e.ID)
	}
	if len(ids) == 0 {
		return g, false, nil
	}
	sortIDs(ids)

	ng := g.clone()
	ng.sel.Edges = ids
	ng.sel.Nodes = nil
	return ng.commit("trav_"+dir.String()+"_edge", start, false), true, nil
}

// TravEndpoints derives a node selection from the current edge selection:
// every endpoint of every selected edge.
func (g *Graph) TravEndpoints(f *Filter) (*Graph, bool, error) {
	if err := g.valid(); err != nil {
		return g, false, err
	}
	if len(g.sel.Edges) == 0 {
		return g, false, fmt.Errorf("trav_endpoints: %w", ErrEmptySelection)
	}
	start := time.Now()

	reached := make(map[int64]struct{}, len(g.sel.Edges)*2)
	for _, id := range g.sel.Edges {
		e, ok := g.Edge(id)
		if !ok {
			continue
		}
		reached[e.From] = struct{}{}
		reached[e.To] = struct{}{}
	}
	var ids []int64
	for id := range reached {
		if f != nil {
			n, ok := g.Node(id)
			if !ok || !f.MatchNode(n) {
				continue
			}
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return g, false, nil
	}
	sortIDs(ids)

	ng := g.clone()
	ng.sel.Nodes = ids
	ng.sel.Edges = nil
	return ng.commit("trav_endpoints", start, false), true, nil
}

// TravReverseEdge replaces the edge selection with the mirror edges of the
// selected ones: for each selected a->b, every edge b->a. Selected edges
// with no mirror contribute nothing.
func (g *Graph) TravReverseEdge() (*Graph, bool, error) {
	if err := g.valid(); err != nil {
		return g, false, err
	}
	if len(g.sel.Edges) == 0 {
		return g, false, fmt.Errorf("trav_reverse_edge: %w", ErrEmptySelection)
	}
	start := time.Now()

	want := make(map[[2]int64]struct{}, len(g.sel.Edges))
	for _, id := range g.sel.Edges {
		e, ok := g.Edge(id)
		if !ok {
			continue
		}
		want[[2]int64{e.To, e.From}] = struct{}{}
	}
	var ids []int64
	for _, e := range g.edges {
		if _, ok := want[[2]int64{e.From, e.To}]; ok {
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		return g, false, nil
	}
	sortIDs(ids)

	ng := g.clone()
	ng.sel.Edges = ids
	return ng.commit("trav_reverse_edge", start, false), true, nil
}

// Nbrs returns the union of in- and out-neighbors of the seed nodes,
// deduplicated and sorted ascending. A node is not its own neighbor unless
// a self-loop exists. Seeds with no neighbors at all yield ErrNoTraversal.
func (g *Graph) Nbrs(seed []int64) ([]int64, error) {
	if err := g.valid(); err != nil {
		return nil, err
	}
	seeds := make(map[int64]struct{}, len(seed))
	for _, id := range seed {
		if g.HasNode(id) {
			seeds[id] = struct{}{}
		}
	}
	reached := make(map[int64]struct{})
	for _, e := range g.edges {
		if _, ok := seeds[e.From]; ok {
			reached[e.To] = struct{}{}
		}
		if _, ok := seeds[e.To]; ok {
			reached[e.From] = struct{}{}
		}
	}
	// A seed only appears in its own neighborhood via a self-loop.
	for id := range seeds {
		if _, ok := reached[id]; ok && !g.hasSelfLoop(id) {
			delete(reached, id)
		}
	}
	if len(reached) == 0 {
		return nil, fmt.Errorf("get_nbrs: %w", ErrNoTraversal)
	}
	ids := make([]int64, 0, len(reached))
	for id := range reached {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids, nil
}

func (g *Graph) hasSelfLoop(id int64) bool {
	for _, e := range g.edges {
		if e.From == id && e.To == id {
			return true
		}
	}
	return false
}

// follows reports whether an edge endpoint match in the given role is
// followed for this direction. forward means the selected node is the edge
// source. Undirected graphs follow everything.
func (g *Graph) follows(dir Direction, forward bool) bool {
	if !g.directed || dir == DirBoth {
		return true
	}
	if forward {
		return dir == DirOut
	}
	return dir == DirIn
}
