package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/graphmill/graphmill/pkg/graph"
)

// PageRank defaults, passed straight through to gonum.
const (
	DefaultDamping   = 0.85
	DefaultTolerance = 1e-6
)

// Degree returns the total degree per node ID. Self-loops count twice on
// undirected graphs, once per direction on directed ones.
func Degree(g *graph.Graph) (map[int64]float64, error) {
	if err := check(g); err != nil {
		return nil, err
	}
	out := zeroed(g)
	for _, e := range g.Edges() {
		out[e.From]++
		out[e.To]++
	}
	return out, nil
}

// InDegree returns the incoming-edge count per node ID.
func InDegree(g *graph.Graph) (map[int64]float64, error) {
	if err := check(g); err != nil {
		return nil, err
	}
	out := zeroed(g)
	for _, e := range g.Edges() {
		out[e.To]++
	}
	return out, nil
}

// OutDegree returns the outgoing-edge count per node ID.
func OutDegree(g *graph.Graph) (map[int64]float64, error) {
	if err := check(g); err != nil {
		return nil, err
	}
	out := zeroed(g)
	for _, e := range g.Edges() {
		out[e.From]++
	}
	return out, nil
}

// PageRank delegates to gonum's network.PageRank. Undirected graphs are
// viewed as arc pairs.
func PageRank(g *graph.Graph, damping, tolerance float64) (map[int64]float64, error) {
	if err := check(g); err != nil {
		return nil, err
	}
	if damping <= 0 || damping >= 1 {
		damping = DefaultDamping
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if g.NodeCount() == 0 {
		return map[int64]float64{}, nil
	}
	return network.PageRank(convert(g).asDirected(), damping, tolerance), nil
}

// Betweenness delegates to gonum's network.Betweenness.
func Betweenness(g *graph.Graph) (map[int64]float64, error) {
	if err := check(g); err != nil {
		return nil, err
	}
	scores := network.Betweenness(convert(g).graph())
	// gonum omits zero-score nodes; fill them in so every node has a row.
	out := zeroed(g)
	for id, v := range scores {
		out[id] = v
	}
	return out, nil
}

// Closeness delegates to gonum's network.Closeness over all shortest paths.
func Closeness(g *graph.Graph) (map[int64]float64, error) {
	if err := check(g); err != nil {
		return nil, err
	}
	gg := convert(g).graph()
	return network.Closeness(gg, path.DijkstraAllPaths(gg)), nil
}

// ShortestPath returns the node IDs along a minimum-weight path between
// two nodes plus its total weight. No path yields ok=false.
func ShortestPath(g *graph.Graph, from, to int64) ([]int64, float64, bool, error) {
	if err := check(g); err != nil {
		return nil, 0, false, err
	}
	if !g.HasNode(from) || !g.HasNode(to) {
		return nil, 0, false, fmt.Errorf("shortest path: %w", graph.ErrNotFound)
	}
	shortest := path.DijkstraFrom(simple.Node(from), convert(g).graph())
	nodes, weight := shortest.To(to)
	if math.IsInf(weight, 1) || len(nodes) == 0 {
		return nil, 0, false, nil
	}
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	return ids, weight, true, nil
}

// Communities delegates to gonum's modularity-based community detection
// and returns groups of node IDs.
func Communities(g *graph.Graph, resolution float64) ([][]int64, error) {
	if err := check(g); err != nil {
		return nil, err
	}
	if resolution <= 0 {
		resolution = 1
	}
	if g.NodeCount() == 0 {
		return nil, nil
	}
	reduced := community.Modularize(convert(g).asUndirected(), resolution, nil)
	var out [][]int64
	for _, comm := range reduced.Communities() {
		ids := make([]int64, 0, len(comm))
		for _, n := range comm {
			ids = append(ids, n.ID())
		}
		sortIDs(ids)
		out = append(out, ids)
	}
	return out, nil
}

// MinSpanningTree delegates to gonum's Kruskal and maps the spanning
// forest back to store edge IDs, sorted ascending, plus its total weight.
func MinSpanningTree(g *graph.Graph) ([]int64, float64, error) {
	if err := check(g); err != nil {
		return nil, 0, err
	}
	c := convert(g)
	dst := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	weight := path.Kruskal(dst, c.asUndirected())

	var ids []int64
	edges := dst.Edges()
	for edges.Next() {
		e := edges.Edge()
		if id, ok := c.edgeID(e.From().ID(), e.To().ID()); ok {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids, weight, nil
}

// Reciprocity returns the ratio of reciprocated non-loop edges to total
// non-loop edges. Undirected graphs are fully reciprocal by construction.
// A graph with no non-loop edges has no defined reciprocity: NaN, ok=false.
func Reciprocity(g *graph.Graph) (float64, bool, error) {
	if err := check(g); err != nil {
		return 0, false, err
	}
	var total, mutual int
	arcs := make(map[[2]int64]struct{})
	for _, e := range g.Edges() {
		if e.From == e.To {
			continue // self-loops are ignored
		}
		arcs[[2]int64{e.From, e.To}] = struct{}{}
	}
	for _, e := range g.Edges() {
		if e.From == e.To {
			continue
		}
		total++
		if _, ok := arcs[[2]int64{e.To, e.From}]; ok {
			mutual++
		}
	}
	if total == 0 {
		return math.NaN(), false, nil
	}
	if !g.Directed() {
		return 1, true, nil
	}
	return float64(mutual) / float64(total), true, nil
}

// WriteNodeMetric stores a metric as a node attribute through the store's
// bulk setter, so the write lands as one logged mutation.
func WriteNodeMetric(g *graph.Graph, attr string, values map[int64]float64) (*graph.Graph, error) {
	boxed := make(map[int64]any, len(values))
	for id, v := range values {
		boxed[id] = v
	}
	return g.SetNodeAttrs(attr, boxed)
}

func check(g *graph.Graph) error {
	if g == nil {
		return graph.ErrInvalidGraph
	}
	return g.Validate()
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func zeroed(g *graph.Graph) map[int64]float64 {
	out := make(map[int64]float64, g.NodeCount())
	for _, n := range g.Nodes() {
		out[n.ID] = 0
	}
	return out
}
