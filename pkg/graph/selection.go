package graph

import (
	"fmt"
	"time"
)

// SelectMode controls how a new selection combines with the current one.
type SelectMode int

const (
	SelectReplace SelectMode = iota
	SelectUnion
	SelectIntersect
)

func (m SelectMode) String() string {
	switch m {
	case SelectReplace:
		return "replace"
	case SelectUnion:
		return "union"
	case SelectIntersect:
		return "intersect"
	}
	return fmt.Sprintf("SelectMode(%d)", int(m))
}

// ParseSelectMode maps a mode name to its SelectMode.
func ParseSelectMode(s string) (SelectMode, error) {
	switch s {
	case "", "replace":
		return SelectReplace, nil
	case "union":
		return SelectUnion, nil
	case "intersect":
		return SelectIntersect, nil
	}
	return SelectReplace, fmt.Errorf("unknown selection mode %q", s)
}

// Selection is the graph's current working set: the chosen node and edge
// IDs, each held deduplicated in ascending order.
type Selection struct {
	Nodes []int64 `json:"nodes,omitempty"`
	Edges []int64 `json:"edges,omitempty"`
}

func (s Selection) clone() Selection {
	return Selection{
		Nodes: append([]int64(nil), s.Nodes...),
		Edges: append([]int64(nil), s.Edges...),
	}
}

// Empty reports whether neither nodes nor edges are selected.
func (s Selection) Empty() bool {
	return len(s.Nodes) == 0 && len(s.Edges) == 0
}

func (s *Selection) dropNode(id int64) {
	s.Nodes = dropID(s.Nodes, id)
}

func (s *Selection) dropEdge(id int64) {
	s.Edges = dropID(s.Edges, id)
}

func dropID(ids []int64, id int64) []int64 {
	kept := ids[:0:0]
	for _, v := range ids {
		if v != id {
			kept = append(kept, v)
		}
	}
	return kept
}

// Selection returns the current selection (a copy).
func (g *Graph) Selection() Selection {
	if g == nil {
		return Selection{}
	}
	return g.sel.clone()
}

// SelectNodes sets the node selection from the given IDs. Unknown IDs are
// silently dropped: selection is a best-effort filter over existing IDs.
func (g *Graph) SelectNodes(ids []int64, mode SelectMode) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	start := time.Now()
	incoming := dedupSorted(ids, g.HasNode)
	ng := g.clone()
	ng.sel.Nodes = combine(ng.sel.Nodes, incoming, mode)
	return ng.commit("select_nodes", start, false), nil
}

// SelectEdges sets the edge selection from the given IDs, dropping unknown
// IDs.
func (g *Graph) SelectEdges(ids []int64, mode SelectMode) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	start := time.Now()
	incoming := dedupSorted(ids, g.HasEdge)
	ng := g.clone()
	ng.sel.Edges = combine(ng.sel.Edges, incoming, mode)
	return ng.commit("select_edges", start, false), nil
}

// SelectNodesByAttr selects the nodes whose attributes satisfy the filter.
func (g *Graph) SelectNodesByAttr(f *Filter, mode SelectMode) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	if f == nil {
		return g, fmt.Errorf("select_nodes_by_attr: nil filter: %w", ErrInvalidAttribute)
	}
	start := time.Now()
	var ids []int64
	for _, n := range g.nodes {
		if f.MatchNode(n) {
			ids = append(ids, n.ID)
		}
	}
	ng := g.clone()
	ng.sel.Nodes = combine(ng.sel.Nodes, ids, mode)
	return ng.commit("select_nodes_by_attr", start, false), nil
}

// SelectEdgesByAttr selects the edges whose attributes satisfy the filter.
func (g *Graph) SelectEdgesByAttr(f *Filter, mode SelectMode) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	if f == nil {
		return g, fmt.Errorf("select_edges_by_attr: nil filter: %w", ErrInvalidAttribute)
	}
	start := time.Now()
	var ids []int64
	for _, e := range g.edges {
		if f.MatchEdge(e) {
			ids = append(ids, e.ID)
		}
	}
	ng := g.clone()
	ng.sel.Edges = combine(ng.sel.Edges, ids, mode)
	return ng.commit("select_edges_by_attr", start, false), nil
}

// InvertNodeSelection replaces the node selection with every node not
// currently selected.
func (g *Graph) InvertNodeSelection() (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	start := time.Now()
	selected := make(map[int64]struct{}, len(g.sel.Nodes))
	for _, id := range g.sel.Nodes {
		selected[id] = struct{}{}
	}
	var inverted []int64
	for _, n := range g.nodes {
		if _, ok := selected[n.ID]; !ok {
			inverted = append(inverted, n.ID)
		}
	}
	sortIDs(inverted)
	ng := g.clone()
	ng.sel.Nodes = inverted
	return ng.commit("invert_node_selection", start, false), nil
}

// ClearSelection empties both the node and the edge selection.
func (g *Graph) ClearSelection() (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	start := time.Now()
	ng := g.clone()
	ng.sel = Selection{}
	return ng.commit("clear_selection", start, false), nil
}

// DeleteNodesWS deletes every selected node (cascading incident edges) and
// clears the consumed node selection.
func (g *Graph) DeleteNodesWS() (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	if len(g.sel.Nodes) == 0 {
		return g, fmt.Errorf("delete_nodes_ws: %w", ErrEmptySelection)
	}
	start := time.Now()
	ng := g.clone()
	for _, id := range g.sel.Nodes {
		ng.deleteNodeRow(id)
	}
	ng.sel.Nodes = nil
	return ng.commit("delete_nodes_ws", start, true), nil
}

// DeleteEdgesWS deletes every selected edge and clears the consumed edge
// selection.
func (g *Graph) DeleteEdgesWS() (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	if len(g.sel.Edges) == 0 {
		return g, fmt.Errorf("delete_edges_ws: %w", ErrEmptySelection)
	}
	start := time.Now()
	ng := g.clone()
	for _, id := range g.sel.Edges {
		ng.deleteEdgeRow(id)
	}
	ng.sel.Edges = nil
	return ng.commit("delete_edges_ws", start, true), nil
}

// SetNodeAttrWS sets one attribute on every selected node. The selection
// is preserved so further with-selection calls can follow.
func (g *Graph) SetNodeAttrWS(key string, value any) (*Graph, error) {
	return g.setNodeAttrWS(key, value, true)
}

func (g *Graph) setNodeAttrWS(key string, value any, trigger bool) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	if len(g.sel.Nodes) == 0 {
		return g, fmt.Errorf("set_node_attr_ws: %w", ErrEmptySelection)
	}
	if key == "" {
		return g, fmt.Errorf("set_node_attr_ws: empty attribute name: %w", ErrInvalidAttribute)
	}
	start := time.Now()
	ng := g.clone()
	for _, id := range ng.sel.Nodes {
		i := ng.nodeIdx[id]
		attrs := cloneAttrs(ng.nodes[i].Attrs)
		if attrs == nil {
			attrs = make(map[string]any, 1)
		}
		attrs[key] = value
		ng.nodes[i].Attrs = attrs
	}
	return ng.commit("set_node_attr_ws", start, trigger), nil
}

// SetEdgeAttrWS sets one attribute on every selected edge.
func (g *Graph) SetEdgeAttrWS(key string, value any) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	if len(g.sel.Edges) == 0 {
		return g, fmt.Errorf("set_edge_attr_ws: %w", ErrEmptySelection)
	}
	if key == "" {
		return g, fmt.Errorf("set_edge_attr_ws: empty attribute name: %w", ErrInvalidAttribute)
	}
	start := time.Now()
	ng := g.clone()
	for _, id := range ng.sel.Edges {
		i := ng.edgeIdx[id]
		attrs := cloneAttrs(ng.edges[i].Attrs)
		if attrs == nil {
			attrs = make(map[string]any, 1)
		}
		attrs[key] = value
		ng.edges[i].Attrs = attrs
	}
	return ng.commit("set_edge_attr_ws", start, true), nil
}

// dedupSorted filters ids down to those accepted by exists, deduplicated
// and sorted ascending.
func dedupSorted(ids []int64, exists func(int64) bool) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	var out []int64
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if exists(id) {
			out = append(out, id)
		}
	}
	sortIDs(out)
	return out
}

func combine(current, incoming []int64, mode SelectMode) []int64 {
	switch mode {
	case SelectUnion:
		seen := make(map[int64]struct{}, len(current)+len(incoming))
		var out []int64
		for _, id := range current {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
		for _, id := range incoming {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
		sortIDs(out)
		return out
	case SelectIntersect:
		in := make(map[int64]struct{}, len(incoming))
		for _, id := range incoming {
			in[id] = struct{}{}
		}
		var out []int64
		for _, id := range current {
			if _, ok := in[id]; ok {
				out = append(out, id)
			}
		}
		sortIDs(out)
		return out
	default: // SelectReplace
		out := append([]int64(nil), incoming...)
		sortIDs(out)
		return out
	}
}
