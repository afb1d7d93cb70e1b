// Package metrics computes graph-theoretic measures for a graph value by
// delegating to gonum. The package's own code is conversion and
// bookkeeping: the store's tables are mapped losslessly into gonum's
// representation (node IDs carry over unchanged, so the mapping is stable
// and invertible) and results are keyed back by store IDs.
package metrics

import (
	"math"

	gograph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/graphmill/graphmill/pkg/graph"
)

// WeightAttr is the edge attribute consulted for edge weights. Edges
// without it weigh 1.
const WeightAttr = "weight"

// converted is a graph value lowered into gonum form. Self-loops are
// excluded (gonum's simple graphs reject them) and counted separately;
// parallel edges collapse onto the first edge ID for a given pair.
type converted struct {
	directed   *simple.WeightedDirectedGraph
	undirected *simple.WeightedUndirectedGraph
	edgeByPair map[[2]int64]int64 // from,to -> store edge ID
	selfLoops  int
}

func convert(g *graph.Graph) *converted {
	c := &converted{
		edgeByPair: make(map[[2]int64]int64),
	}
	if g.Directed() {
		c.directed = simple.NewWeightedDirectedGraph(0, math.Inf(1))
	} else {
		c.undirected = simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	}
	for _, n := range g.Nodes() {
		c.builder().AddNode(simple.Node(n.ID))
	}
	for _, e := range g.Edges() {
		if e.From == e.To {
			c.selfLoops++
			continue
		}
		pair := c.pair(e.From, e.To)
		if _, dup := c.edgeByPair[pair]; !dup {
			c.edgeByPair[pair] = e.ID
		}
		c.builder().SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(e.From),
			T: simple.Node(e.To),
			W: edgeWeight(e),
		})
	}
	return c
}

func (c *converted) builder() gograph.WeightedBuilder {
	if c.directed != nil {
		return c.directed
	}
	return c.undirected
}

func (c *converted) graph() gograph.Graph {
	if c.directed != nil {
		return c.directed
	}
	return c.undirected
}

// pair normalizes an endpoint pair for the edge-ID lookup. Undirected
// graphs store pairs low-high so either orientation finds the edge.
func (c *converted) pair(from, to int64) [2]int64 {
	if c.directed == nil && from > to {
		from, to = to, from
	}
	return [2]int64{from, to}
}

// asDirected returns a directed view regardless of the store's
// directedness: undirected edges become arc pairs. PageRank needs this.
func (c *converted) asDirected() gograph.Directed {
	if c.directed != nil {
		return c.directed
	}
	d := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	nodes := c.undirected.Nodes()
	for nodes.Next() {
		d.AddNode(nodes.Node())
	}
	edges := c.undirected.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		d.SetWeightedEdge(simple.WeightedEdge{F: e.From(), T: e.To(), W: e.Weight()})
		d.SetWeightedEdge(simple.WeightedEdge{F: e.To(), T: e.From(), W: e.Weight()})
	}
	return d
}

// asUndirected returns an undirected view; directed arcs lose orientation.
// Spanning trees and communities use this.
func (c *converted) asUndirected() *simple.WeightedUndirectedGraph {
	if c.undirected != nil {
		return c.undirected
	}
	u := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	nodes := c.directed.Nodes()
	for nodes.Next() {
		u.AddNode(nodes.Node())
	}
	edges := c.directed.WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		if u.HasEdgeBetween(e.From().ID(), e.To().ID()) {
			continue
		}
		u.SetWeightedEdge(simple.WeightedEdge{F: e.From(), T: e.To(), W: e.Weight()})
	}
	return u
}

// edgeID maps a gonum edge back to the store's edge ID.
func (c *converted) edgeID(from, to int64) (int64, bool) {
	if id, ok := c.edgeByPair[c.pair(from, to)]; ok {
		return id, true
	}
	if c.directed == nil {
		return 0, false
	}
	// Undirected views of directed stores can hand back either orientation.
	id, ok := c.edgeByPair[[2]int64{to, from}]
	return id, ok
}

func edgeWeight(e graph.Edge) float64 {
	if raw, ok := e.Attrs[WeightAttr]; ok {
		switch w := raw.(type) {
		case float64:
			return w
		case float32:
			return float64(w)
		case int:
			return float64(w)
		case int64:
			return float64(w)
		}
	}
	return 1
}
