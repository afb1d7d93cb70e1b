package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmill/graphmill/pkg/graph"
)

func mkGraph(t *testing.T, directed bool, nodes int, edges [][2]int64) *graph.Graph {
	t.Helper()
	g := graph.New(directed)
	for i := 0; i < nodes; i++ {
		var err error
		g, _, err = g.AddNode(nil)
		require.NoError(t, err)
	}
	for _, e := range edges {
		var err error
		g, _, err = g.AddEdge(e[0], e[1], nil)
		require.NoError(t, err)
	}
	return g
}

func TestDegree(t *testing.T) {
	// Star: 1 -> 2, 1 -> 3, 4 -> 1, plus isolated node 5.
	g := mkGraph(t, true, 5, [][2]int64{{1, 2}, {1, 3}, {4, 1}})

	deg, err := Degree(g)
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{1: 3, 2: 1, 3: 1, 4: 1, 5: 0}, deg)

	in, err := InDegree(g)
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{1: 1, 2: 1, 3: 1, 4: 0, 5: 0}, in)

	out, err := OutDegree(g)
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{1: 2, 2: 0, 3: 0, 4: 1, 5: 0}, out)
}

func TestPageRank(t *testing.T) {
	// 2 and 3 both point at 1, so 1 must rank highest.
	g := mkGraph(t, true, 3, [][2]int64{{2, 1}, {3, 1}, {1, 2}})

	pr, err := PageRank(g, DefaultDamping, DefaultTolerance)
	require.NoError(t, err)
	require.Len(t, pr, 3)

	var sum float64
	for _, v := range pr {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-6, "ranks must sum to 1")
	assert.Greater(t, pr[1], pr[2])
	assert.Greater(t, pr[1], pr[3])
}

func TestPageRankEmptyGraph(t *testing.T) {
	pr, err := PageRank(graph.New(true), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, pr)
}

func TestBetweennessCenterOfPath(t *testing.T) {
	g := mkGraph(t, false, 3, [][2]int64{{1, 2}, {2, 3}})
	bc, err := Betweenness(g)
	require.NoError(t, err)
	assert.Greater(t, bc[2], 0.0)
	assert.Zero(t, bc[1])
	assert.Zero(t, bc[3])
}

func TestShortestPathPrefersLightEdges(t *testing.T) {
	g := graph.New(true)
	for i := 0; i < 3; i++ {
		g, _, _ = g.AddNode(nil)
	}
	// Direct hop costs 10, the detour through 2 costs 2.
	g, _, _ = g.AddEdge(1, 3, map[string]any{WeightAttr: 10.0})
	g, _, _ = g.AddEdge(1, 2, map[string]any{WeightAttr: 1.0})
	g, _, _ = g.AddEdge(2, 3, map[string]any{WeightAttr: 1.0})

	ids, weight, ok, err := ShortestPath(g, 1, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, 2.0, weight)
}

func TestShortestPathUnreachable(t *testing.T) {
	g := mkGraph(t, true, 3, [][2]int64{{1, 2}})
	_, _, ok, err := ShortestPath(g, 3, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, _, err = ShortestPath(g, 1, 99)
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestReciprocity(t *testing.T) {
	// One mutual pair out of three non-loop edges, plus an ignored
	// self-loop: 2/3.
	g := mkGraph(t, true, 3, [][2]int64{{1, 2}, {2, 1}, {2, 3}, {1, 1}})
	r, ok, err := Reciprocity(g)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2.0/3.0, r, 1e-12)
}

func TestReciprocityPureCycle(t *testing.T) {
	// A 3-cycle has no mutual pairs at all.
	g := mkGraph(t, true, 3, [][2]int64{{1, 2}, {2, 3}, {3, 1}})
	r, ok, err := Reciprocity(g)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, r)
}

func TestReciprocityUndirected(t *testing.T) {
	g := mkGraph(t, false, 2, [][2]int64{{1, 2}})
	r, ok, err := Reciprocity(g)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, r)
}

func TestReciprocityUndefined(t *testing.T) {
	// Only a self-loop: no non-loop edges, so no defined ratio.
	g := mkGraph(t, true, 1, [][2]int64{{1, 1}})
	r, ok, err := Reciprocity(g)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, math.IsNaN(r))
}

func TestCommunitiesTwoCliques(t *testing.T) {
	// Two triangles joined by a single bridge.
	g := mkGraph(t, false, 6, [][2]int64{
		{1, 2}, {2, 3}, {3, 1},
		{4, 5}, {5, 6}, {6, 4},
		{3, 4},
	})
	comms, err := Communities(g, 1)
	require.NoError(t, err)
	require.Len(t, comms, 2)

	byMember := map[int64][]int64{}
	for _, c := range comms {
		for _, id := range c {
			byMember[id] = c
		}
	}
	assert.Equal(t, byMember[1], byMember[2])
	assert.Equal(t, byMember[1], byMember[3])
	assert.Equal(t, byMember[4], byMember[5])
	assert.NotEqual(t, byMember[1], byMember[4])
}

func TestMinSpanningTree(t *testing.T) {
	g := graph.New(false)
	for i := 0; i < 4; i++ {
		g, _, _ = g.AddNode(nil)
	}
	// Square with one heavy diagonal. The MST must skip the weight-9 edge.
	g, _, _ = g.AddEdge(1, 2, map[string]any{WeightAttr: 1.0}) // edge 1
	g, _, _ = g.AddEdge(2, 3, map[string]any{WeightAttr: 1.0}) // edge 2
	g, _, _ = g.AddEdge(3, 4, map[string]any{WeightAttr: 1.0}) // edge 3
	g, _, _ = g.AddEdge(4, 1, map[string]any{WeightAttr: 9.0}) // edge 4

	ids, weight, err := MinSpanningTree(g)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, 3.0, weight)
}

func TestJaccard(t *testing.T) {
	// 1 and 2 share neighbor 3; 1 also has 4, 2 also has 5.
	g := mkGraph(t, true, 5, [][2]int64{{1, 3}, {1, 4}, {2, 3}, {2, 5}})
	m, err := Jaccard(g, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.Equal(t, 1.0, m[0][0])
	assert.InDelta(t, 1.0/3.0, m[0][1], 1e-12)
	assert.Equal(t, m[0][1], m[1][0])

	_, err = Jaccard(g, []int64{99})
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestWriteNodeMetric(t *testing.T) {
	g := mkGraph(t, true, 2, [][2]int64{{1, 2}})
	deg, err := Degree(g)
	require.NoError(t, err)

	g, err = WriteNodeMetric(g, "degree", deg)
	require.NoError(t, err)
	v, ok := g.NodeAttr(1, "degree")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}
